package credential

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Host is what the embedding environment offers for key management.
type Host interface {
	// SelectedKey returns a key the user already chose through the host, if any.
	SelectedKey(ctx context.Context) (key string, ok bool, err error)
	// SelectKey runs the interactive chooser. ok is false when the user declines.
	SelectKey(ctx context.Context) (key string, ok bool, err error)
	// Forget drops any remembered selection so the next user starts without a key.
	Forget(ctx context.Context) error
}

// StaticHost hands out a fixed key; an empty key behaves like a declining user.
type StaticHost struct {
	Key      string
	Selected bool
	Calls    int

	mu sync.Mutex
}

func (h *StaticHost) SelectedKey(ctx context.Context) (string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := strings.TrimSpace(h.Key)
	if !h.Selected || k == "" {
		return "", false, nil
	}
	return k, true, nil
}

func (h *StaticHost) SelectKey(ctx context.Context) (string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Calls++
	k := strings.TrimSpace(h.Key)
	if k == "" {
		return "", false, nil
	}
	h.Selected = true
	return k, true, nil
}

func (h *StaticHost) Forget(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Selected = false
	return nil
}

// TerminalHost prompts on a terminal for a key. Input is hidden when in is a TTY.
type TerminalHost struct {
	In     *os.File
	Out    io.Writer
	Prompt string

	mu       sync.Mutex
	selected string
}

func NewTerminalHost() *TerminalHost {
	return &TerminalHost{
		In:     os.Stdin,
		Out:    os.Stderr,
		Prompt: "Paste a Gemini API key from a paid project (empty to cancel): ",
	}
}

func (h *TerminalHost) SelectedKey(ctx context.Context) (string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected, h.selected != "", nil
}

func (h *TerminalHost) Forget(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = ""
	return nil
}

func (h *TerminalHost) SelectKey(ctx context.Context) (string, bool, error) {
	if h.In == nil {
		return "", false, nil
	}
	if h.Out != nil {
		fmt.Fprint(h.Out, h.Prompt)
	}

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		fd := int(h.In.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			if h.Out != nil {
				fmt.Fprintln(h.Out)
			}
			done <- result{line: string(b), err: err}
			return
		}
		line, err := bufio.NewReader(h.In).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case r := <-done:
		if r.err != nil && r.err != io.EOF {
			return "", false, fmt.Errorf("read key: %w", r.err)
		}
		key := strings.TrimSpace(r.line)
		if key == "" {
			return "", false, nil
		}
		h.mu.Lock()
		h.selected = key
		h.mu.Unlock()
		return key, true, nil
	}
}

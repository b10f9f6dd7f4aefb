// Package geminitest provides an in-memory Provider for tests.
package geminitest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/yungbote/creator-studio/internal/platform/gemini"
)

// Fake records every call and answers from its configured fields.
type Fake struct {
	mu sync.Mutex

	ImageFunc func(call gemini.ImageCall) (*gemini.ImageResult, error)
	Text      string
	TextErr   error
	StartOp   *gemini.Operation
	StartErr  error
	// PollSeq is returned in order; the last entry repeats.
	PollSeq      []*gemini.Operation
	PollErrs     []error
	DownloadData []byte
	DownloadMIME string
	DownloadErr  error

	imageCalls []gemini.ImageCall
	textCalls  []string
	videoCalls []gemini.VideoCall
	polls      int
	downloads  []string
	keys       []string
}

var _ gemini.Provider = (*Fake)(nil)

// New answers image calls with a small PNG and video jobs with an operation that
// finishes on the first poll.
func New() *Fake {
	return &Fake{
		ImageFunc: func(gemini.ImageCall) (*gemini.ImageResult, error) {
			return &gemini.ImageResult{Image: &gemini.InlineImage{Data: PNG(32, 18), MIMEType: "image/png"}}, nil
		},
		Text:         "an enhanced prompt",
		StartOp:      &gemini.Operation{Name: "operations/video-1"},
		PollSeq:      []*gemini.Operation{{Name: "operations/video-1", Done: true, VideoURI: "https://generativelanguage.googleapis.com/v1beta/files/v1:download"}},
		DownloadData: []byte("\x00\x00\x00\x18ftypmp42"),
		DownloadMIME: "video/mp4",
	}
}

func (f *Fake) GenerateImage(ctx context.Context, apiKey string, call gemini.ImageCall) (*gemini.ImageResult, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, call)
	f.keys = append(f.keys, apiKey)
	fn := f.ImageFunc
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return &gemini.ImageResult{}, nil
	}
	return fn(call)
}

func (f *Fake) GenerateText(ctx context.Context, apiKey string, model string, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, prompt)
	f.keys = append(f.keys, apiKey)
	return f.Text, f.TextErr
}

func (f *Fake) StartVideo(ctx context.Context, apiKey string, call gemini.VideoCall) (*gemini.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls = append(f.videoCalls, call)
	f.keys = append(f.keys, apiKey)
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	op := *f.StartOp
	return &op, nil
}

func (f *Fake) PollVideo(ctx context.Context, apiKey string, op *gemini.Operation) (*gemini.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if i < len(f.PollErrs) && f.PollErrs[i] != nil {
		return nil, f.PollErrs[i]
	}
	if len(f.PollSeq) == 0 {
		return &gemini.Operation{Name: op.Name}, nil
	}
	if i >= len(f.PollSeq) {
		i = len(f.PollSeq) - 1
	}
	next := *f.PollSeq[i]
	return &next, nil
}

func (f *Fake) Download(ctx context.Context, apiKey string, uri string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, uri)
	if f.DownloadErr != nil {
		return nil, "", f.DownloadErr
	}
	return f.DownloadData, f.DownloadMIME, nil
}

func (f *Fake) ImageCalls() []gemini.ImageCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gemini.ImageCall(nil), f.imageCalls...)
}

func (f *Fake) TextCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.textCalls...)
}

func (f *Fake) VideoCalls() []gemini.VideoCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gemini.VideoCall(nil), f.videoCalls...)
}

func (f *Fake) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *Fake) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.downloads...)
}

// RemoteCalls counts every call that reached the provider.
func (f *Fake) RemoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.imageCalls) + len(f.textCalls) + len(f.videoCalls) + f.polls + len(f.downloads)
}

func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// PNG encodes a solid w x h image.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

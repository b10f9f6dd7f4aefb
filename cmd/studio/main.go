package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yungbote/creator-studio/internal/app"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, env *cli, args []string) error
}

// cli is what every subcommand sees.
type cli struct {
	app *app.App
	in  *bufio.Reader
	out io.Writer
	err io.Writer
}

var commands = []command{
	{"signin", "signin demo | signin federated -token JWT", "sign in and persist the session", cmdSignIn},
	{"signout", "signout", "sign out and forget the session", cmdSignOut},
	{"whoami", "whoami", "show the signed-in user and credential state", cmdWhoAmI},
	{"key", "key", "select an API key through the host", cmdKey},
	{"image", "image -prompt TEXT [-size 1K|2K|4K] [-aspect 1:1] [-tag T]... [-o FILE]", "generate an image", cmdImage},
	{"edit", "edit -prompt TEXT -in FILE [-o FILE]", "edit an image with an instruction", cmdEdit},
	{"video", "video -prompt TEXT [-image FILE]... [-asset ID]... [-tag T]... [-aspect 16:9] [-res 720p] [-o FILE]", "generate a video", cmdVideo},
	{"enhance", "enhance TEXT", "rewrite a draft prompt", cmdEnhance},
	{"merge", "merge -prompt TEXT -image FILE -image FILE [...] [-frame FILE] [-yes]", "compose references into one frame, then animate it", cmdMerge},
	{"history", "history list | tag ID TAG... | delete ID | clear [-yes]", "manage saved generations", cmdHistory},
	{"assets", "assets list | add -name NAME -file FILE | delete ID", "manage reference assets", cmdAssets},
	{"export", "export ID FILE", "write a history item's media to a file", cmdExport},
	{"tags", "tags", "list tags suggested by history", cmdTags},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: studio [-config FILE] [-data-dir DIR] [-metrics] COMMAND [ARGS]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n           %s\n", c.name, c.summary, c.usage)
	}
}

func main() {
	var configPath, dataDir string
	var dumpMetrics bool
	flag.StringVar(&configPath, "config", "", "config file (default <data-dir>/studio.yaml)")
	flag.StringVar(&dataDir, "data-dir", "", "data directory (default: user config dir)")
	flag.BoolVar(&dumpMetrics, "metrics", false, "print call metrics to stderr on exit")
	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage(os.Stderr)
		os.Exit(2)
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage(os.Stderr)
		os.Exit(2)
	}

	// keep stderr for progress and prompts unless asked otherwise
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", "warn")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, app.Options{ConfigPath: configPath, DataDir: dataDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		os.Exit(1)
	}

	env := &cli{app: application, in: bufio.NewReader(os.Stdin), out: os.Stdout, err: os.Stderr}
	runErr := cmd.run(ctx, env, args[1:])

	if dumpMetrics {
		_ = application.Metrics.WritePrometheus(os.Stderr)
	}
	if err := application.Close(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, describe(runErr))
		os.Exit(1)
	}
}

// describe prefers the user-facing wording for classified errors.
func describe(err error) string {
	if apierr.KindOf(err) == "" {
		return err.Error()
	}
	return apierr.UserMessage(err)
}

func (c *cli) confirm(question string) bool {
	fmt.Fprintf(c.err, "%s [y/N] ", question)
	line, _ := c.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.err)
	return fs
}

// readImage loads an image file and sniffs its MIME type.
func readImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("%s: not an image (%s)", path, mime)
	}
	return data, mime, nil
}

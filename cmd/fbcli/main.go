// Command fbcli calls the Graph API from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"

	"Fbaccess/internal/core/access"
	"Fbaccess/internal/core/images"
)

// ExitError carries a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	slog.SetDefault(newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprint(w, `
fbcli - Graph API from the command line.

Usage:
  fbcli [options] <command> [args] [command options]

Commands:
`)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].usage)
	}
	fmt.Fprint(w, "\nOptions:\n")
	fs.PrintDefaults()
}

// run encapsulates the command logic for easier testing.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	fs := flag.NewFlagSet("fbcli", flag.ContinueOnError)
	fs.SetOutput(errW)
	token := fs.String("token", os.Getenv("FB_ACCESS_TOKEN"), "Access token. Defaults to FB_ACCESS_TOKEN.")
	logLevel := fs.String("log-level", envOr("LOG_LEVEL", "info"), "Logging level: debug, info, warn, error.")
	logFormat := fs.String("log-format", envOr("LOG_FORMAT", "text"), "Log output format: text or json.")
	fs.Usage = func() { usage(errW, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}
	slog.SetDefault(newLogger(*logLevel, *logFormat, errW))

	if fs.NArg() == 0 {
		fs.Usage()
		return &ExitError{Code: 2, Message: "no command given"}
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", name)}
	}

	inv, err := parseInvocation(name, fs.Args()[1:], errW)
	if err != nil {
		return err
	}
	inv.out = outW
	if len(inv.args) < cmd.minArgs {
		return &ExitError{Code: 2, Message: fmt.Sprintf("usage: fbcli %s %s", name, cmd.usage)}
	}

	cfg := access.ConfigFromEnv()

	if name == "login" {
		return runLogin(ctx, cfg, inv, errW)
	}

	s, err := openSession(ctx, cfg, access.WithToken(*token))
	if err != nil {
		return err
	}
	defer s.Close()

	return cmd.run(ctx, s, inv)
}

// parseInvocation accepts command options anywhere among the positional arguments.
func parseInvocation(name string, args []string, errW io.Writer) (invocation, error) {
	fs := flag.NewFlagSet("fbcli "+name, flag.ContinueOnError)
	fs.SetOutput(errW)
	temp := fs.Bool("temp", false, "Cache pictures as temporary.")
	outPath := fs.String("out", "", "Write pictures to this file instead of stdout.")
	width := fs.Int("width", 0, "Scale pictures to this width.")
	height := fs.Int("height", 0, "Scale pictures to this height.")
	includeRead := fs.Bool("include-read", false, "Include read notifications.")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return invocation{}, &ExitError{Code: 0, Message: ""}
			}
			return invocation{}, &ExitError{Code: 2, Message: err.Error()}
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	return invocation{
		args:        positional,
		temp:        *temp,
		outPath:     *outPath,
		scale:       images.Dimension{Width: *width, Height: *height},
		includeRead: *includeRead,
	}, nil
}

func runLogin(ctx context.Context, cfg access.Config, inv invocation, errW io.Writer) error {
	authenticator, redirectURI, stop, err := newLoginAuthenticator(cfg, errW)
	if err != nil {
		return err
	}
	defer stop()

	s, err := openSession(ctx, cfg, access.WithAuthenticator(authenticator))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.client.Authenticate(ctx, cfg.ClientID, redirectURI, cfg.Permissions); err != nil {
		return err
	}
	_, err = fmt.Fprintln(inv.out, s.client.Token())
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/docopt/docopt.go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/TFMV/featgen/app"
	"github.com/TFMV/featgen/logging"
	"github.com/TFMV/featgen/storage"
)

const version = "featgen version 1.0.0"

const usage = `featgen - write a small, deterministic feature table for local demos.

Usage:
  featgen [--root=<path>] [--n-users=<n>] [--seed=<n>] [--format=<fmt>] [--upload=<url>] [--metrics-file=<path>]
  featgen (-h | --help)
  featgen --version

Options:
  -h --help              Show this screen.
  --version              Show version.
  --root=<path>          The root directory of the project (accepted but ignored).
  --n-users=<n>          Number of users to generate [default: 50].
  --seed=<n>             Random seed for reproducibility [default: 42].
  --format=<fmt>         Output format: csv, arrow or parquet [default: csv].
  --upload=<url>         Also copy the written file to gs://bucket[/prefix].
  --metrics-file=<path>  Write run metrics in Prometheus text format.
`

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// errExit signals that docopt already printed help or the version.
var errExit = errors.New("exit requested")

// usageError marks malformed command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// parseArgs turns argv into run options. Help and version text go to stdout,
// usage errors to stderr.
func parseArgs(argv []string, stdout, stderr io.Writer) (app.Options, error) {
	shown := false
	parser := &docopt.Parser{
		HelpHandler: func(err error, text string) {
			if err != nil {
				fmt.Fprintln(stderr, text)
				return
			}
			shown = true
			fmt.Fprintln(stdout, text)
		},
	}
	arguments, err := parser.ParseArgs(usage, argv, version)
	if err != nil {
		return app.Options{}, &usageError{err: err}
	}
	if shown {
		return app.Options{}, errExit
	}

	opts := app.DefaultOptions()
	if opts.NUsers, err = arguments.Int("--n-users"); err != nil {
		return app.Options{}, &usageError{err: fmt.Errorf("invalid --n-users: %w", err)}
	}
	seed, err := arguments.String("--seed")
	if err != nil {
		return app.Options{}, &usageError{err: fmt.Errorf("invalid --seed: %w", err)}
	}
	if opts.Seed, err = strconv.ParseInt(seed, 10, 64); err != nil {
		return app.Options{}, &usageError{err: fmt.Errorf("invalid --seed: %w", err)}
	}
	format, err := arguments.String("--format")
	if err != nil {
		return app.Options{}, &usageError{err: fmt.Errorf("invalid --format: %w", err)}
	}
	if opts.Format, err = storage.ParseFormat(format); err != nil {
		return app.Options{}, &usageError{err: err}
	}
	if root, ok := arguments["--root"].(string); ok {
		opts.Root = root
	}
	if upload, ok := arguments["--upload"].(string); ok {
		opts.Upload = upload
	}
	if metricsFile, ok := arguments["--metrics-file"].(string); ok {
		opts.MetricsFile = metricsFile
	}
	return opts, nil
}

func run(argv []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(argv, stdout, stderr)
	if errors.Is(err, errExit) {
		return exitOK
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Error parsing arguments: %v\n", err)
		return exitUsage
	}

	// Load .env if present; real environment variables still win.
	_ = godotenv.Load()

	logger, err := logging.Init(logging.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := app.Run(ctx, opts, stdout, logger); err != nil {
		logger.Error("featgen failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

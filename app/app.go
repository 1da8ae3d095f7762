// Package app wires generation, storage, summary, metrics and upload into
// one featgen run.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/TFMV/featgen/generator"
	"github.com/TFMV/featgen/metrics"
	"github.com/TFMV/featgen/query"
	"github.com/TFMV/featgen/remote"
	"github.com/TFMV/featgen/storage"
)

// SuccessPrefix starts the one line printed to stdout on success.
const SuccessPrefix = "Success! Sample feature table saved to: "

// Options are the inputs of one run.
type Options struct {
	// Root is accepted for compatibility but never used; the project root
	// is always resolved from WorkDir.
	Root string
	// WorkDir is where project root discovery starts. Empty means the
	// process working directory.
	WorkDir     string
	NUsers      int
	Seed        int64
	Format      storage.Format
	Upload      string
	MetricsFile string
}

// DefaultOptions returns 50 users, seed 42, CSV.
func DefaultOptions() Options {
	cfg := generator.DefaultConfig()
	return Options{NUsers: cfg.NUsers, Seed: cfg.Seed, Format: storage.CSV}
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Path       string
	Rows       int
	Bytes      int64
	Summary    query.Summary
	UploadedTo string
}

// Uploader copies the written file somewhere else.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Close() error
}

// Runner executes runs against fixed outputs.
type Runner struct {
	Stdout      io.Writer
	Logger      *zap.Logger
	NewUploader func(ctx context.Context, dest string) (Uploader, error)
}

// NewRunner returns a Runner that uploads to GCS.
func NewRunner(stdout io.Writer, logger *zap.Logger) *Runner {
	return &Runner{
		Stdout: stdout,
		Logger: logger,
		NewUploader: func(ctx context.Context, dest string) (Uploader, error) {
			u, err := remote.NewGCSUploader(ctx, dest, remote.ClientOptions()...)
			if err != nil {
				return nil, err
			}
			return u, nil
		},
	}
}

// Run is shorthand for NewRunner(stdout, logger).Run(ctx, opts).
func Run(ctx context.Context, opts Options, stdout io.Writer, logger *zap.Logger) (Result, error) {
	return NewRunner(stdout, logger).Run(ctx, opts)
}

// Run generates the table, writes it under the project root and prints the
// success line. Summary, upload and metrics follow the write and never
// change the file.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := r.Logger.With(zap.String("run_id", res.RunID))

	if opts.Format == "" {
		opts.Format = storage.CSV
	}
	if opts.Root != "" {
		logger.Warn("--root is ignored; the project root is resolved from the working directory",
			zap.String("root", opts.Root))
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return res, fmt.Errorf("failed to get working directory: %w", err)
		}
		workDir = wd
	}
	root := FindProjectRoot(workDir)

	path, err := filepath.Abs(storage.OutputPath(root, opts.Format))
	if err != nil {
		return res, fmt.Errorf("failed to resolve output path: %w", err)
	}
	res.Path = path

	recorder := metrics.NewRecorder(prometheus.Labels{"format": string(opts.Format)})

	start := time.Now()
	tbl, err := generator.Generate(generator.Config{NUsers: opts.NUsers, Seed: opts.Seed})
	if err != nil {
		return res, err
	}
	defer tbl.Release()
	res.Rows = tbl.NumRows()
	recorder.ObserveGenerate(time.Since(start), res.Rows)
	logger.Debug("Generated feature table",
		zap.Int("n_users", opts.NUsers),
		zap.Int64("seed", opts.Seed))

	start = time.Now()
	n, err := storage.Save(tbl, path, opts.Format)
	if err != nil {
		return res, err
	}
	res.Bytes = n
	recorder.ObserveWrite(time.Since(start), n)

	if _, err := fmt.Fprintln(r.Stdout, successLine(r.Stdout, path)); err != nil {
		return res, fmt.Errorf("failed to print success message: %w", err)
	}

	summary, err := query.Summarize(tbl)
	if err != nil {
		return res, err
	}
	res.Summary = summary
	recorder.SetHighValueRows(summary.HighValueUsers)
	logger.Info("Saved feature table",
		zap.String("path", path),
		zap.String("format", string(opts.Format)),
		zap.Int("rows", summary.Rows),
		zap.Int64("bytes", n),
		zap.Int("high_value_users", summary.HighValueUsers),
		zap.Float64("min_total_amount", summary.MinTotal),
		zap.Float64("max_total_amount", summary.MaxTotal))
	for _, c := range summary.Countries {
		logger.Debug("Country summary",
			zap.String("country", c.Country),
			zap.Int("users", c.Users),
			zap.Int("high_value_users", c.HighValueUsers),
			zap.Float64("total_amount", c.TotalAmount))
	}

	if opts.Upload != "" {
		url, err := r.upload(ctx, opts.Upload, path)
		if err != nil {
			return res, err
		}
		res.UploadedTo = url
		logger.Info("Uploaded feature table", zap.String("url", url))
	}

	if opts.MetricsFile != "" {
		if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
			return res, err
		}
		logger.Debug("Wrote metrics", zap.String("path", opts.MetricsFile))
	}

	return res, nil
}

func (r *Runner) upload(ctx context.Context, dest, path string) (string, error) {
	u, err := r.NewUploader(ctx, dest)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = u.Close()
	}()
	return u.Upload(ctx, path)
}

// successLine is green only when w is an interactive terminal; pipes, files
// and buffers get plain text.
func successLine(w io.Writer, path string) string {
	line := SuccessPrefix + path
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return color.Green.Sprint(line)
	}
	return line
}

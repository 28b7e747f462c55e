package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
)

var (
	// ErrNoOutput means the fetcher left no output file.
	ErrNoOutput = errors.New("fetcher produced no output file")
	// ErrEmptyOutput means the output file exists but is zero-length.
	ErrEmptyOutput = errors.New("fetcher output file is empty")
)

// Runner starts a process and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run executes name with args, killing the process if ctx is cancelled.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	// #nosec G204 -- the binary path comes from operator configuration.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Invoker drives the external fetcher.
type Invoker struct {
	cfg    Config
	runner Runner
	logger *zap.Logger
}

// New builds an Invoker. A nil runner uses ExecRunner.
func New(cfg Config, runner Runner, logger *zap.Logger) *Invoker {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{cfg: cfg, runner: runner, logger: logger}
}

// Fresh returns parameters for a run without a stored snapshot.
func (f *Invoker) Fresh() Params {
	return Fresh(f.cfg)
}

// Incremental returns parameters that stop at lastID.
func (f *Invoker) Incremental(lastID int64) Params {
	return Incremental(f.cfg, lastID)
}

// Fetch runs the fetcher with params and blocks until it exits.
//
// A stale output file is removed first. A failed invocation is tolerated
// when the output file was nonetheless produced; otherwise the failure is
// returned.
func (f *Invoker) Fetch(ctx context.Context, params Params) error {
	if err := os.Remove(params.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale output %s: %w", params.OutputPath, err)
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	args := params.Args()
	logger := f.logger.With(zap.String("binary", f.cfg.Binary), zap.Strings("args", args))
	logger.Info("Running fetcher", zap.String("mode", params.Mode()), zap.Int64("stop_at_id", params.StopAtID))

	stdout := &zapio.Writer{Log: f.logger.Named("stdout"), Level: zap.InfoLevel}
	stderr := &zapio.Writer{Log: f.logger.Named("stderr"), Level: zap.InfoLevel}
	start := time.Now()
	runErr := f.runner.Run(ctx, f.cfg.Binary, args, stdout, stderr)
	closeWriter(stdout, logger)
	closeWriter(stderr, logger)
	elapsed := time.Since(start)

	if runErr == nil {
		logger.Info("Fetcher finished", zap.Duration("elapsed", elapsed))
		return nil
	}

	logger.Error("Fetcher failed", zap.Error(runErr), zap.Duration("elapsed", elapsed))
	if _, err := os.Stat(params.OutputPath); err == nil {
		logger.Warn("Continuing with partial fetcher output", zap.String("output", params.OutputPath))
		return nil
	}
	return fmt.Errorf("fetcher failed without output: %w", runErr)
}

// ReadOutput parses the configured output file.
func (f *Invoker) ReadOutput() ([]dataset.Record, error) {
	return ReadOutput(f.cfg.Output)
}

// ReadOutput parses a fetcher output file. It returns ErrNoOutput or
// ErrEmptyOutput for a missing or zero-length file, and an error wrapping
// dataset.ErrMalformed for undecodable content.
func ReadOutput(path string) ([]dataset.Record, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoOutput
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, ErrEmptyOutput
	}

	// #nosec G304 -- path comes from operator configuration.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	records, err := dataset.ReadJSONL(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func closeWriter(w io.Closer, logger *zap.Logger) {
	if err := w.Close(); err != nil {
		logger.Warn("Failed to flush fetcher output", zap.Error(err))
	}
}

package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"sermonmux/internal/deps"
	"sermonmux/internal/logging"
	"sermonmux/internal/services"
)

// commandRunner executes binary with args and returns captured stderr and
// the process exit code. A nil error means exit code zero.
type commandRunner func(binary string, args []string) (stderr string, exitCode int, err error)

// Executor runs transcode jobs against a resolved engine binary.
type Executor struct {
	engine    deps.FFmpeg
	locateErr error
	audio     Audio
	logger    *slog.Logger
	run       commandRunner
}

// NewExecutor resolves the engine once. A failed lookup is remembered and
// returned from every Execute call.
func NewExecutor(override string, audio Audio, logger *slog.Logger) *Executor {
	engine, err := deps.LocateFFmpeg(override)
	return &Executor{
		engine:    engine,
		locateErr: err,
		audio:     audio,
		logger:    logging.NewComponentLogger(logger, "transcode"),
		run:       defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Executor) WithCommandRunner(r commandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// Engine reports the resolved engine and any lookup error.
func (e *Executor) Engine() (deps.FFmpeg, error) {
	return e.engine, e.locateErr
}

// Execute runs job and returns its output path. The context is consulted
// only before the engine starts.
func (e *Executor) Execute(ctx context.Context, job Job) (string, error) {
	if e == nil {
		return "", errors.New("transcode executor not initialized")
	}
	if e.locateErr != nil {
		return "", e.locateErr
	}
	if err := job.Validate(); err != nil {
		return "", services.Wrap(services.ErrValidation, "transcode", "validate job", "", err)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	if err := preflight(job); err != nil {
		return "", err
	}

	logger := logging.WithContext(ctx, e.logger)
	args := BuildArgs(job, e.audio)
	logger.Debug("executing ffmpeg",
		logging.String("binary", e.engine.Path),
		logging.Any("args", args),
	)
	logger.Info("transcode started",
		logging.String(logging.FieldEventType, "transcode_started"),
		logging.String("job_kind", job.Kind.String()),
		logging.String("output", job.OutputPath),
	)

	started := time.Now()
	stderr, exitCode, err := e.run(e.engine.Path, args)
	if err != nil {
		execErr := &ExecutionError{
			Binary:     e.engine.Path,
			Args:       args,
			ExitCode:   exitCode,
			Diagnostic: stderr,
			Err:        err,
		}
		logging.ErrorWithContext(logger, "transcode failed", "transcode_failed",
			logging.String("job_kind", job.Kind.String()),
			logging.String("output", job.OutputPath),
			logging.Int("exit_code", exitCode),
			logging.String(logging.FieldErrorClass, services.Classify(execErr)),
			logging.String(logging.FieldDiagnostic, stderr),
			logging.Error(execErr),
			logging.String(logging.FieldErrorHint, "inspect the diagnostic for the ffmpeg error"),
		)
		return "", execErr
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "transcode_complete"),
		logging.String("job_kind", job.Kind.String()),
		logging.String("output", job.OutputPath),
		logging.Duration("elapsed", time.Since(started)),
	}
	if info, statErr := os.Stat(job.OutputPath); statErr == nil {
		attrs = append(attrs, logging.Int64("file_size_bytes", info.Size()))
	}
	logger.Info("transcode complete", logging.Args(attrs...)...)
	return job.OutputPath, nil
}

func preflight(job Job) error {
	for _, input := range job.Inputs() {
		info, err := os.Stat(input)
		if err != nil {
			return services.Wrap(services.ErrIO, "transcode", "check input", input, err)
		}
		if info.IsDir() {
			return services.Wrap(services.ErrIO, "transcode", "check input", input+" is a directory", nil)
		}
	}
	dir := filepath.Dir(job.OutputPath)
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return services.Wrap(services.ErrIO, "transcode", "check output directory",
			fmt.Sprintf("%s not writable", dir), err)
	}
	return nil
}

func defaultCommandRunner(binary string, args []string) (string, int, error) {
	var stderr bytes.Buffer
	cmd := exec.Command(binary, args...) //nolint:gosec // binary resolved by deps.LocateFFmpeg
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stderr.String(), 0, nil
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return stderr.String(), exitCode, err
}

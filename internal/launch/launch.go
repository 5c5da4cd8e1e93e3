package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// Exit reasons recorded on a Launch.
const (
	ExitNormal = "normal"
	ExitFailed = "failed"
	ExitKilled = "killed"
)

// Config describes one emulator run.
type Config struct {
	Binary    string
	Dir       string
	Machine   string
	Args      []string
	ExtraArgs []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Launch records a finished emulator run.
type Launch struct {
	ID         string
	Machine    string
	Args       []string
	StartedAt  time.Time
	ExitedAt   time.Time
	ExitCode   int
	ExitReason string
}

// CommandLine returns the arguments passed to the emulator binary.
func (c *Config) CommandLine() []string {
	args := make([]string, 0, 1+len(c.Args)+len(c.ExtraArgs))
	args = append(args, c.Machine)
	args = append(args, c.Args...)
	args = append(args, c.ExtraArgs...)
	return args
}

// Run starts the emulator and waits for it to exit. A non-zero exit status
// is reported on the Launch, not as an error; the error is reserved for
// runs that could not be started.
func Run(ctx context.Context, cfg *Config) (*Launch, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := &Launch{
		ID:      uuid.New().String(),
		Machine: cfg.Machine,
		Args:    cfg.CommandLine(),
	}

	cmd := exec.CommandContext(ctx, cfg.Binary, l.Args...)
	cmd.Dir = cfg.Dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if cfg.Stdin != nil {
		cmd.Stdin = cfg.Stdin
	}
	if cfg.Stdout != nil {
		cmd.Stdout = cfg.Stdout
	}
	if cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	}

	logger.Info("launching emulator", "id", l.ID, "machine", cfg.Machine, "args", l.Args)
	l.StartedAt = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cfg.Binary, err)
	}

	err := cmd.Wait()
	l.ExitedAt = time.Now()
	l.ExitCode = cmd.ProcessState.ExitCode()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		l.ExitReason = ExitNormal
	case ctx.Err() != nil:
		l.ExitReason = ExitKilled
	case errors.As(err, &exitErr):
		l.ExitReason = ExitFailed
	default:
		return l, fmt.Errorf("failed to wait for %s: %w", cfg.Binary, err)
	}

	logger.Info("emulator exited",
		"id", l.ID,
		"machine", cfg.Machine,
		"code", l.ExitCode,
		"reason", l.ExitReason,
		"duration", l.ExitedAt.Sub(l.StartedAt).Round(time.Millisecond))
	return l, nil
}

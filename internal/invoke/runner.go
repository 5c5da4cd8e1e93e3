package invoke

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner starts the emulator and streams its combined stdout and stderr.
// Closing the returned reader releases the process.
type Runner interface {
	Start(ctx context.Context, args []string) (io.ReadCloser, error)
}

// ExecRunner runs a local emulator binary.
type ExecRunner struct {
	Binary string
	Dir    string
	Env    []string
}

// Start launches the binary with args. The process is killed when ctx is
// cancelled.
func (r *ExecRunner) Start(ctx context.Context, args []string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return nil, fmt.Errorf("failed to start %s: %w", r.Binary, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pw.CloseWithError(cmd.Wait())
	}()

	return &processReader{PipeReader: pr, done: done}, nil
}

type processReader struct {
	*io.PipeReader
	done chan struct{}
}

// Close stops reading and waits for the process to exit. A process still
// writing gets a broken pipe.
func (p *processReader) Close() error {
	err := p.PipeReader.Close()
	<-p.done
	return err
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// stopGrace is how long a capture child gets to exit after an interrupt
// before it is killed.
const stopGrace = 3 * time.Second

// ErrCaptureExited is returned when the capture child stops on its own.
var ErrCaptureExited = errors.New("capture process exited")

// CaptureProcess describes the child that runs the capture unit when the
// handoff crosses a process boundary.
type CaptureProcess struct {
	Path string
	Args []string
	// Env replaces the child's environment when set.
	Env []string
	// Stderr receives the child's diagnostics. Nil discards them.
	Stderr io.Writer
}

func (p CaptureProcess) command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Env = p.Env
	cmd.Stdout = io.Discard
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = stopGrace
	return cmd
}

// RunWithProcess starts the capture child and runs the transcription loop
// against the shared handoff until ctx is cancelled or the child dies.
func (a *App) RunWithProcess(ctx context.Context, child CaptureProcess) error {
	g, ctx := errgroup.WithContext(ctx)

	cmd := child.command(ctx)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start capture process: %w", err)
	}
	a.log.Debug().Int("pid", cmd.Process.Pid).Msg("Started capture process")

	g.Go(func() error {
		err := cmd.Wait()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCaptureExited, err)
		}
		return ErrCaptureExited
	})
	g.Go(func() error { return a.Listen(ctx) })
	return g.Wait()
}

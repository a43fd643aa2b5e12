package launcher

import (
	"context"
	"errors"
	"os/exec"
	"sync"
)

// execProcess wraps a started exec.Cmd as an opaque lifecycle process
// handle. The exit status is collected once and cached so AwaitExit can be
// called from both the start rollback path and teardown.
type execProcess struct {
	cmd    *exec.Cmd
	exitCh chan error

	mu      sync.Mutex
	exited  bool
	exitErr error
}

func newExecProcess(cmd *exec.Cmd) *execProcess {
	p := &execProcess{
		cmd:    cmd,
		exitCh: make(chan error, 1),
	}
	go func() {
		p.exitCh <- cmd.Wait()
	}()
	return p
}

// Terminate sends the platform's graceful termination signal.
func (p *execProcess) Terminate() error {
	return sendTermSignal(p.cmd.Process)
}

// Kill force-kills the process.
func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// AwaitExit blocks until the process exits or ctx is done. A non-zero exit
// status is a normal outcome here: a terminated node reports the signal
// through its exit status.
func (p *execProcess) AwaitExit(ctx context.Context) error {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return p.exitErr
	}
	p.mu.Unlock()

	select {
	case err := <-p.exitCh:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = nil
		}
		p.mu.Lock()
		p.exited = true
		p.exitErr = err
		p.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package lifecycle owns the sandbox node process: starting it against a
// set of leased ports, gating start-up on readiness, and tearing everything
// down without masking partial failures.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AlexKushnir1/near-sandbox-go/internal/ports"
	"github.com/AlexKushnir1/near-sandbox-go/internal/readiness"
	"github.com/AlexKushnir1/near-sandbox-go/internal/sanderr"
	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

// DefaultExitWait bounds how long teardown waits for the node to exit
// before force-killing it and moving on to directory removal.
const DefaultExitWait = 10 * time.Second

// Process is an opaque handle on the spawned node. The session is its sole
// owner; nothing else may signal or wait on it.
type Process interface {
	// Terminate asks the process to shut down.
	Terminate() error
	// AwaitExit blocks until the process has exited or ctx is done. A
	// non-zero exit status after termination is not an error.
	AwaitExit(ctx context.Context) error
}

// Killer is implemented by processes that support a forced kill. Teardown
// uses it when a terminated process fails to exit within the wait bound.
type Killer interface {
	Kill() error
}

// Launcher resolves the node binary and spawns it. Binary download and
// version resolution live behind this interface, outside this package.
type Launcher interface {
	Launch(ctx context.Context, homeDir string, args []string) (Process, error)
}

// Session is the full set of live resources for one running sandbox:
// the process, both port leases, and the working directory.
type Session struct {
	RPCURL  string
	HomeDir string
	Ports   *ports.Pair
	Process Process
}

// Manager starts and tears down sandbox sessions.
type Manager struct {
	probe    *readiness.Probe
	exitWait time.Duration
}

// NewManager creates a Manager that gates start-up on the given probe.
func NewManager(probe *readiness.Probe) *Manager {
	return &Manager{probe: probe, exitWait: DefaultExitWait}
}

// Start spawns the node with the leased addresses and blocks until its RPC
// endpoint reports ready. On a readiness failure the process is terminated
// before the error propagates; launcher failures propagate unwrapped.
// Releasing the leases stays with the caller that acquired them.
func (m *Manager) Start(ctx context.Context, launcher Launcher, homeDir string, pair *ports.Pair) (*Session, error) {
	args := []string{"--home", homeDir, "run", "--rpc-addr", pair.RPCAddr, "--network-addr", pair.NetAddr}
	proc, err := launcher.Launch(ctx, homeDir, args)
	if err != nil {
		return nil, err
	}

	rpcURL := "http://" + pair.RPCAddr
	if err := m.probe.WaitUntilReady(ctx, rpcURL); err != nil {
		m.reap(proc)
		return nil, err
	}

	logger.Info().Str("rpc", rpcURL).Str("home", homeDir).Msg("sandbox node is ready")
	return &Session{
		RPCURL:  rpcURL,
		HomeDir: homeDir,
		Ports:   pair,
		Process: proc,
	}, nil
}

// TearDown stops a session. Every step runs even when an earlier one
// failed, so a single call reports every leaked resource: the process is
// terminated, both port locks are released independently, and with cleanup
// the node's exit is awaited and the home directory removed. Collected
// failures surface as one TearDownFailed aggregate, in step order.
func (m *Manager) TearDown(ctx context.Context, s *Session, cleanup bool) error {
	var failures []error

	if err := s.Process.Terminate(); err != nil {
		failures = append(failures, fmt.Errorf("terminate node process: %w", err))
	}

	if err := s.Ports.RPC.Release(); err != nil {
		failures = append(failures, fmt.Errorf("release RPC port %d: %w", s.Ports.RPC.Port, err))
	}
	if err := s.Ports.Net.Release(); err != nil {
		failures = append(failures, fmt.Errorf("release network port %d: %w", s.Ports.Net.Port, err))
	}

	if cleanup {
		waitCtx, cancel := context.WithTimeout(ctx, m.exitWait)
		err := s.Process.AwaitExit(waitCtx)
		cancel()
		if err != nil {
			failures = append(failures, fmt.Errorf("wait for node exit: %w", err))
			if k, ok := s.Process.(Killer); ok {
				if killErr := k.Kill(); killErr != nil {
					failures = append(failures, fmt.Errorf("kill node process: %w", killErr))
				}
			}
		}
		// RemoveAll tolerates a directory that is already gone.
		if err := os.RemoveAll(s.HomeDir); err != nil {
			failures = append(failures, fmt.Errorf("remove home directory %s: %w", s.HomeDir, err))
		}
	}

	if len(failures) > 0 {
		return sanderr.Aggregate(sanderr.TearDownFailed, "teardown failed", failures)
	}
	logger.Info().Str("home", s.HomeDir).Bool("cleanup", cleanup).Msg("sandbox torn down")
	return nil
}

// reap terminates and waits for a process whose session never came up. It
// runs on its own context so rollback still happens when the start context
// is already done.
func (m *Manager) reap(proc Process) {
	if err := proc.Terminate(); err != nil {
		logger.Warnf("terminate node after failed start: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), m.exitWait)
	defer cancel()
	if err := proc.AwaitExit(waitCtx); err != nil {
		if k, ok := proc.(Killer); ok {
			_ = k.Kill()
		}
	}
}

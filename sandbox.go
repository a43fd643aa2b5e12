// Package sandbox starts and stops isolated NEAR sandbox node instances
// for local testing. Each instance gets an exclusive pair of loopback
// ports, reserved across processes through lock files, its own working
// directory, and is only handed to the caller once its RPC endpoint is
// serving. Teardown reports every leaked resource in a single error
// instead of stopping at the first failure.
package sandbox

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/AlexKushnir1/near-sandbox-go/internal/config"
	"github.com/AlexKushnir1/near-sandbox-go/internal/launcher"
	"github.com/AlexKushnir1/near-sandbox-go/internal/lifecycle"
	"github.com/AlexKushnir1/near-sandbox-go/internal/portlock"
	"github.com/AlexKushnir1/near-sandbox-go/internal/ports"
	"github.com/AlexKushnir1/near-sandbox-go/internal/readiness"
	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

// Config controls how a sandbox instance starts. The zero value asks the
// OS for both ports, generates a working directory under the system temp
// directory, and resolves the node binary from the environment.
type Config struct {
	// RPCPort and NetPort pin the node's ports. 0 lets the OS pick.
	RPCPort int
	NetPort int

	// HomeDir is the node's working directory. Empty generates a fresh
	// one; generated directories are removed again when start fails.
	HomeDir string

	// BinPath and Version select the node binary (see launcher.ExecLauncher).
	BinPath string
	Version string

	// Timeout is the readiness polling budget. Zero reads the
	// NEAR_SANDBOX_TIMEOUT setting, which defaults to 10 seconds.
	Timeout time.Duration

	// Launcher replaces the default exec-based launcher.
	Launcher lifecycle.Launcher

	// SkipHomeInit starts the node without materializing genesis/config
	// files first.
	SkipHomeInit bool

	// Stdout and Stderr receive the node's output when non-nil.
	Stdout io.Writer
	Stderr io.Writer
}

// HomeInitializer is implemented by launchers that can materialize a
// node's genesis and config files.
type HomeInitializer interface {
	InitHome(ctx context.Context, homeDir string) error
}

// Sandbox is one running node instance. It is either fully started —
// process running, both port locks held, readiness confirmed — or it does
// not exist.
type Sandbox struct {
	RPCURL      string
	HomeDir     string
	RPCPort     int
	NetPort     int
	RPCLockPath string
	NetLockPath string

	manager *lifecycle.Manager
	session *lifecycle.Session
}

// Start brings up a sandbox node: lease the RPC port, lease the network
// port, initialize the home directory, spawn the node, and wait for its
// RPC endpoint to serve. Any failure on the way releases what was already
// acquired before the error propagates.
func Start(ctx context.Context, cfg Config) (*Sandbox, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		envCfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		timeout = envCfg.ReadinessTimeout()
	}

	arbiter := ports.NewArbiter(portlock.NewRegistrar())
	pair, err := arbiter.GetPorts(cfg.RPCPort, cfg.NetPort)
	if err != nil {
		return nil, err
	}
	releaseLeases := func() {
		if err := pair.RPC.Release(); err != nil {
			logger.Warnf("release RPC port %d after failed start: %v", pair.RPC.Port, err)
		}
		if err := pair.Net.Release(); err != nil {
			logger.Warnf("release network port %d after failed start: %v", pair.Net.Port, err)
		}
	}

	homeDir := cfg.HomeDir
	generatedHome := homeDir == ""
	if generatedHome {
		homeDir = filepath.Join(os.TempDir(), "near-sandbox-"+uuid.NewString())
	}
	removeGeneratedHome := func() {
		if !generatedHome {
			return
		}
		if err := os.RemoveAll(homeDir); err != nil {
			logger.Warnf("remove home directory %s after failed start: %v", homeDir, err)
		}
	}

	launch := cfg.Launcher
	if launch == nil {
		launch = &launcher.ExecLauncher{
			BinPath: cfg.BinPath,
			Version: cfg.Version,
			Stdout:  cfg.Stdout,
			Stderr:  cfg.Stderr,
		}
	}

	if !cfg.SkipHomeInit {
		if init, ok := launch.(HomeInitializer); ok {
			if err := init.InitHome(ctx, homeDir); err != nil {
				releaseLeases()
				removeGeneratedHome()
				return nil, err
			}
		}
	}

	manager := lifecycle.NewManager(readiness.NewProbe(timeout))
	session, err := manager.Start(ctx, launch, homeDir, pair)
	if err != nil {
		releaseLeases()
		removeGeneratedHome()
		return nil, err
	}

	return &Sandbox{
		RPCURL:      session.RPCURL,
		HomeDir:     session.HomeDir,
		RPCPort:     pair.RPC.Port,
		NetPort:     pair.Net.Port,
		RPCLockPath: pair.RPC.LockPath,
		NetLockPath: pair.Net.LockPath,
		manager:     manager,
		session:     session,
	}, nil
}

// TearDown stops the node and releases both port locks. With cleanup it
// also waits for the process to exit and removes the working directory.
// Every step runs regardless of earlier failures; the returned error, if
// any, aggregates all of them.
func (s *Sandbox) TearDown(ctx context.Context, cleanup bool) error {
	return s.manager.TearDown(ctx, s.session, cleanup)
}

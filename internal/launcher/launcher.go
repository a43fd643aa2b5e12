// Package launcher resolves the sandbox node binary and spawns it. It is
// the default implementation of the lifecycle Launcher collaborator;
// downloading missing binaries is out of scope and surfaces as a start
// failure with installation advice.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/AlexKushnir1/near-sandbox-go/internal/lifecycle"
	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

// DefaultVersion is the node version resolved when none is configured.
const DefaultVersion = "2.6.3"

// BinPathEnv overrides binary resolution with an explicit path.
const BinPathEnv = "NEAR_SANDBOX_BIN"

const binaryName = "near-sandbox"

// ExecLauncher spawns the node binary with os/exec.
type ExecLauncher struct {
	// BinPath, when set, is used verbatim instead of version resolution.
	BinPath string

	// Version selects the installed binary under ~/.near-sandbox. Must be
	// valid semver when set.
	Version string

	// Stdout and Stderr receive the node's output when non-nil.
	Stdout io.Writer
	Stderr io.Writer
}

// Resolve returns the path of the node binary to run. Resolution order:
// explicit BinPath, the NEAR_SANDBOX_BIN environment variable, then the
// versioned install directory under the user's home.
func (l *ExecLauncher) Resolve() (string, error) {
	if l.BinPath != "" {
		return checkBinary(l.BinPath)
	}
	if path := os.Getenv(BinPathEnv); path != "" {
		return checkBinary(path)
	}

	raw := l.Version
	if raw == "" {
		raw = DefaultVersion
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return "", fmt.Errorf("invalid node version %q: %w", raw, err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	path := filepath.Join(home, ".near-sandbox", v.String(), binaryName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("node binary %s for version %s not found (install it or set %s): %w",
			path, v, BinPathEnv, err)
	}
	return path, nil
}

func checkBinary(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("node binary %s not found: %w", path, err)
	}
	return path, nil
}

// Launch starts the node binary with the given arguments and returns the
// process handle. The handle outlives ctx; termination is the owner's job.
func (l *ExecLauncher) Launch(ctx context.Context, homeDir string, args []string) (lifecycle.Process, error) {
	bin, err := l.Resolve()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	logger.Info().Str("bin", bin).Int("pid", cmd.Process.Pid).Strs("args", args).Msg("started sandbox node")

	return newExecProcess(cmd), nil
}

// InitHome materializes genesis and config files in homeDir by running the
// node's own init command. A home that already has a config.json is left
// untouched.
func (l *ExecLauncher) InitHome(ctx context.Context, homeDir string) error {
	if _, err := os.Stat(filepath.Join(homeDir, "config.json")); err == nil {
		return nil
	}

	bin, err := l.Resolve()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(homeDir, 0755); err != nil {
		return fmt.Errorf("create home directory %s: %w", homeDir, err)
	}

	cmd := exec.CommandContext(ctx, bin, "--home", homeDir, "init")
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("initialize sandbox home %s: %w", homeDir, err)
	}
	logger.Debug().Str("home", homeDir).Msg("initialized sandbox home")
	return nil
}

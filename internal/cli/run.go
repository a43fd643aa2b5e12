package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sandbox "github.com/AlexKushnir1/near-sandbox-go"
	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

// sessionInfo is what `run` prints for the caller to consume.
type sessionInfo struct {
	RPCURL      string `yaml:"rpc_url"`
	HomeDir     string `yaml:"home_dir"`
	RPCPort     int    `yaml:"rpc_port"`
	NetPort     int    `yaml:"net_port"`
	RPCLockPath string `yaml:"rpc_lock_path"`
	NetLockPath string `yaml:"net_lock_path"`
}

func newRunCmd() *cobra.Command {
	var (
		rpcPort  int
		netPort  int
		homeDir  string
		binPath  string
		version  string
		keepHome bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a sandbox node and block until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sbCfg := sandbox.Config{
				RPCPort: rpcPort,
				NetPort: netPort,
				HomeDir: homeDir,
				BinPath: binPath,
				Version: version,
				Timeout: cfg.ReadinessTimeout(),
				Stdout:  os.Stderr,
				Stderr:  os.Stderr,
			}
			if sbCfg.BinPath == "" {
				sbCfg.BinPath = cfg.Bin.Path
			}
			if sbCfg.Version == "" {
				sbCfg.Version = cfg.Bin.Version
			}

			sb, err := sandbox.Start(ctx, sbCfg)
			if err != nil {
				return err
			}

			info := sessionInfo{
				RPCURL:      sb.RPCURL,
				HomeDir:     sb.HomeDir,
				RPCPort:     sb.RPCPort,
				NetPort:     sb.NetPort,
				RPCLockPath: sb.RPCLockPath,
				NetLockPath: sb.NetLockPath,
			}
			out, err := yaml.Marshal(info)
			if err != nil {
				return err
			}
			cmd.Print(string(out))

			<-ctx.Done()
			logger.Info().Msg("shutting down sandbox")

			cleanup := !keepHome && !cfg.Home.Keep
			return sb.TearDown(cmd.Context(), cleanup)
		},
	}

	cmd.Flags().IntVar(&rpcPort, "rpc-port", 0, "RPC port (0 picks a free port)")
	cmd.Flags().IntVar(&netPort, "net-port", 0, "network port (0 picks a free port)")
	cmd.Flags().StringVar(&homeDir, "home", "", "node home directory (default: generated under the temp dir)")
	cmd.Flags().StringVar(&binPath, "bin", "", "node binary path")
	cmd.Flags().StringVar(&version, "node-version", "", "node version to resolve under ~/.near-sandbox")
	cmd.Flags().BoolVar(&keepHome, "keep-home", false, "leave the home directory on disk after shutdown")

	return cmd
}

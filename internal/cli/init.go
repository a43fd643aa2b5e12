package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexKushnir1/near-sandbox-go/internal/config"
	"github.com/AlexKushnir1/near-sandbox-go/internal/launcher"
	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

func newInitCmd() *cobra.Command {
	var (
		homeDir string
		binPath string
		version string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Materialize a sandbox home directory without starting a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := &launcher.ExecLauncher{
				BinPath: binPath,
				Version: version,
				Stdout:  os.Stderr,
				Stderr:  os.Stderr,
			}
			if l.BinPath == "" {
				l.BinPath = cfg.Bin.Path
			}
			if l.Version == "" {
				l.Version = cfg.Bin.Version
			}

			if err := l.InitHome(cmd.Context(), homeDir); err != nil {
				return err
			}
			logger.Infof("sandbox home ready at %s", homeDir)

			// Persist the effective tool config on first use.
			configPath, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.SaveTo(cfg, configPath); err != nil {
					return err
				}
				logger.Infof("wrote default config to %s", configPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&homeDir, "home", "", "node home directory")
	cmd.Flags().StringVar(&binPath, "bin", "", "node binary path")
	cmd.Flags().StringVar(&version, "node-version", "", "node version to resolve under ~/.near-sandbox")
	_ = cmd.MarkFlagRequired("home")

	return cmd
}

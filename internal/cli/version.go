package cli

import (
	"github.com/spf13/cobra"
)

// Version is the CLI version, overridable at build time with -ldflags.
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the near-sandbox version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("near-sandbox " + Version)
		},
	}
}

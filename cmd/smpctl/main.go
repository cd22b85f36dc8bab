// Command smpctl maintains the owner seed file read by the server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "smpctl",
	Short:         "Maintenance commands for the SMP server",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	rootCmd.AddCommand(newHashPasswordCmd(), newCheckUsersCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

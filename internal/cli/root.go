package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "latstat",
	Short:   "An intercept-overhead accounting HTTP proxy",
	Version: version,
	Long: `Latstat is an intercepting forward proxy that measures how much its own
inspection stage delays each exchange, and aggregates that overhead per
destination host and globally for the process lifetime.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

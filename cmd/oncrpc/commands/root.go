// Package commands implements the oncrpc command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/oncrpc/cmd/oncrpc/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile      string
	logLevel     string
	outputFormat string
	portmapPort  int
)

var rootCmd = &cobra.Command{
	Use:   "oncrpc",
	Short: "ONC RPC client toolkit",
	Long: `oncrpc talks to ONC RPC (RFC 5531) services over TCP.

It locates programs through the portmapper (rpcbind), calls procedures with
XDR-encoded arguments, and can run a portmapper of its own.

Use "oncrpc [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/oncrpc/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().IntVar(&portmapPort, "portmap-port", 0, "port of the remote portmapper (default: client.portmap_port from config)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(getaddrCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(portmapCmd)
	rootCmd.AddCommand(config.Cmd)
}

package config

import (
	"fmt"

	"github.com/marmos91/oncrpc/internal/cli/output"
	"github.com/marmos91/oncrpc/pkg/config"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Print the configuration after defaults and ONCRPC_* environment
overrides have been applied.

Examples:
  oncrpc config show
  ONCRPC_CLIENT_NETID=tcp6 oncrpc config show -o json`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	formatName, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	case output.FormatYAML, output.FormatTable:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
	return fmt.Errorf("unsupported format %s", format)
}

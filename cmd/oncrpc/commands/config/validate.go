package config

import (
	"fmt"

	"github.com/marmos91/oncrpc/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the oncrpc configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  oncrpc config validate
  oncrpc config validate --config /etc/oncrpc/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Portmap.Port < 1024 {
		warnings = append(warnings, fmt.Sprintf("portmap.port %d is privileged; 'oncrpc portmap serve' needs elevated rights", cfg.Portmap.Port))
	}
	if cfg.Client.CallTimeout == 0 {
		warnings = append(warnings, "client.call_timeout is 0; calls to an unresponsive server block forever")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Portmapper port:  %d\n", cfg.Client.PortmapPort)
	_, _ = fmt.Fprintf(out, "  NetID:            %s\n", cfg.Client.NetID)
	_, _ = fmt.Fprintf(out, "  Call timeout:     %s\n", cfg.Client.CallTimeout)
	_, _ = fmt.Fprintf(out, "  Registrations:    %d\n", len(cfg.Portmap.Registrations))
	_, _ = fmt.Fprintf(out, "  Log level:        %s\n", cfg.Logging.Level)

	return nil
}

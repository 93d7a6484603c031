package config

import (
	"fmt"

	"github.com/marmos91/oncrpc/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample oncrpc configuration file holding every default.

By default, the file is created at $XDG_CONFIG_HOME/oncrpc/config.yaml.
Use --config to choose another path.

Examples:
  oncrpc config init
  oncrpc config init --config ./oncrpc.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	var (
		configPath string
		err        error
	)
	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the client section to point at your portmapper")
	_, _ = fmt.Fprintf(out, "  2. Check it with: oncrpc config validate --config %s\n", configPath)
	return nil
}

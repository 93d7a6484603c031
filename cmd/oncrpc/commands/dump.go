package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/oncrpc/internal/cli/output"
	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/pkg/portmap"
)

var dumpCmd = &cobra.Command{
	Use:   "dump HOST",
	Short: "List the programs registered with a portmapper",
	Long: `List every registration known to the portmapper on HOST, like
"rpcinfo -p".

Examples:
  oncrpc dump fileserver
  oncrpc dump localhost -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	shutdown, err := initTelemetry(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.DialTimeout+cfg.Client.CallTimeout)
	defer cancel()

	pm, err := portmap.DialPortmapper(ctx, args[0], cfg.Client.PortmapOptions(nil)...)
	if err != nil {
		return err
	}
	defer func() { _ = pm.Close() }()

	list, err := pm.Dump(ctx)
	if err != nil {
		return err
	}

	// Older portmappers lack GETTIME; the listing is still useful.
	if now, err := pm.GetTime(ctx); err == nil {
		printer.Printf("Portmapper %s, clock %s\n\n", pm.RemoteAddr(), now.UTC().Format(time.RFC3339))
	} else {
		logger.Debug("GETTIME failed", logger.Err(err))
	}

	return printer.Print(output.NewRegistrations(list))
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/oncrpc/internal/cli/output"
	"github.com/marmos91/oncrpc/pkg/portmap"
)

var getaddrCmd = &cobra.Command{
	Use:   "getaddr HOST PROG VERS",
	Short: "Look up a program's address through the portmapper",
	Long: `Ask the portmapper on HOST where program PROG version VERS listens.

PROG and VERS accept decimal or 0x-prefixed hex.

Examples:
  # Where is NFSv3?
  oncrpc getaddr fileserver 100003 3

  # Query a portmapper on a non-standard port, as JSON
  oncrpc getaddr localhost 0x20000099 1 --portmap-port 1111 -o json`,
	Args: cobra.ExactArgs(3),
	RunE: runGetaddr,
}

func runGetaddr(cmd *cobra.Command, args []string) error {
	host, prog, vers, err := parseTarget(args)
	if err != nil {
		return err
	}
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

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.DialTimeout)
	defer cancel()

	pm, err := portmap.DialPortmapper(ctx, host, cfg.Client.PortmapOptions(nil)...)
	if err != nil {
		return err
	}
	defer func() { _ = pm.Close() }()

	uaddr, err := pm.GetAddr(ctx, prog, vers)
	if err != nil {
		return err
	}
	if uaddr == "" {
		return fmt.Errorf("%w: program %d version %d on %s", portmap.ErrServerUnavailable, prog, vers, host)
	}
	target, err := portmap.ParseUniversalAddr(uaddr)
	if err != nil {
		return err
	}

	return printer.Print(output.Resolution{
		Host:    host,
		Program: prog,
		Version: vers,
		Address: uaddr,
		Port:    target.Port(),
	})
}

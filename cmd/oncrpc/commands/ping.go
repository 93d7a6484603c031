package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/pkg/portmap"
	"github.com/marmos91/oncrpc/pkg/rpc"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

var pingCount int

var pingCmd = &cobra.Command{
	Use:   "ping HOST PROG VERS",
	Short: "Call procedure 0 of a program",
	Long: `Locate PROG/VERS through the portmapper on HOST, connect to it and
call the NULL procedure, like "rpcinfo -t".

Examples:
  oncrpc ping fileserver 100003 3
  oncrpc ping localhost 100000 4 --count 5`,
	Args: cobra.ExactArgs(3),
	RunE: runPing,
}

func init() {
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 1, "number of NULL calls to send")
}

func runPing(cmd *cobra.Command, args []string) error {
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

	dialCtx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.DialTimeout)
	client, err := portmap.Dial(dialCtx, host, prog, vers, cfg.Client.PortmapOptions(nil)...)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	for i := 0; i < pingCount; i++ {
		start := time.Now()
		if err := callNull(cmd.Context(), client, cfg.Client.CallTimeout); err != nil {
			return err
		}
		rtt := time.Since(start)
		logger.Debug("NULL call", logger.Program(prog), logger.Version(vers), logger.DurationMs(float64(rtt.Microseconds())/1000))
		printer.Printf("program %d version %d ready and waiting (%s)\n", prog, vers, rtt.Round(time.Microsecond))
	}
	return nil
}

func callNull(ctx context.Context, client *rpc.Client, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return client.Call(ctx, 0, nil, &xdr.Void{})
}

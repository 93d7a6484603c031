package commands

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/oncrpc/internal/cli/output"
	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/pkg/config"
	"github.com/marmos91/oncrpc/pkg/metrics"
	"github.com/marmos91/oncrpc/pkg/metrics/prometheus"
	"github.com/marmos91/oncrpc/pkg/portmap"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

var (
	benchSessions  int
	benchCalls     int
	benchProcedure uint32
)

var benchCmd = &cobra.Command{
	Use:   "bench HOST PROG VERS [TYPE:VALUE...]",
	Short: "Measure call latency and throughput",
	Long: `Open --sessions clients to PROG/VERS on HOST and issue --calls calls
on each. Every session is its own connection; calls on one session are
sequential.

Arguments use the same TYPE:VALUE literals as "oncrpc call". With metrics
enabled, /metrics stays available while the run lasts.

Examples:
  oncrpc bench localhost 100003 3 --sessions 8 --calls 1000
  oncrpc bench localhost 0x20000099 1 --procedure 1 int:3 int:4`,
	Args: cobra.MinimumNArgs(3),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchSessions, "sessions", "s", 4, "concurrent client sessions")
	benchCmd.Flags().IntVarP(&benchCalls, "calls", "n", 100, "calls per session")
	benchCmd.Flags().Uint32VarP(&benchProcedure, "procedure", "p", 0, "procedure to call")
}

type sessionResult struct {
	latencies []time.Duration
	failed    int
}

func runBench(cmd *cobra.Command, args []string) error {
	host, prog, vers, err := parseTarget(args[:3])
	if err != nil {
		return err
	}
	callArgs, err := parseArgs(args[3:])
	if err != nil {
		return err
	}
	if benchSessions < 1 || benchCalls < 1 {
		return fmt.Errorf("--sessions and --calls must be positive")
	}
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := initTelemetry(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer shutdown()

	var m metrics.RPCClientMetrics
	if startMetrics(ctx, cfg) {
		m = prometheus.NewRPCClientMetrics()
	}

	logger.Info("Starting benchmark",
		logger.KeyAddress, host,
		logger.KeyProgram, prog,
		logger.KeyVersion, vers,
		logger.KeyProcedure, benchProcedure,
		"sessions", benchSessions,
		"calls", benchCalls,
	)

	results := make([]sessionResult, benchSessions)
	var wg sync.WaitGroup
	start := time.Now()
	for i := range results {
		wg.Add(1)
		go func(res *sessionResult) {
			defer wg.Done()
			*res = runSession(ctx, cfg, m, host, prog, vers, callArgs)
		}(&results[i])
	}
	wg.Wait()
	elapsed := time.Since(start)

	var (
		latencies []time.Duration
		failed    int
	)
	for _, r := range results {
		latencies = append(latencies, r.latencies...)
		failed += r.failed
	}

	return printer.Print(output.NewBenchReport(benchSessions, latencies, failed, elapsed))
}

// runSession dials one client and issues benchCalls calls. A session that
// cannot connect or whose client breaks counts its remaining calls as errors.
func runSession(ctx context.Context, cfg *config.Config, m metrics.RPCClientMetrics, host string, prog, vers uint32, args xdr.XdrEncoder) sessionResult {
	res := sessionResult{latencies: make([]time.Duration, 0, benchCalls)}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Client.DialTimeout)
	client, err := portmap.Dial(dialCtx, host, prog, vers, cfg.Client.PortmapOptions(m)...)
	cancel()
	if err != nil {
		logger.Warn("Session dial failed", logger.Err(err))
		res.failed = benchCalls
		return res
	}
	defer func() { _ = client.Close() }()

	for i := 0; i < benchCalls; i++ {
		if ctx.Err() != nil {
			res.failed += benchCalls - i
			break
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Client.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, cfg.Client.CallTimeout)
		}
		var body replyBody
		start := time.Now()
		err := client.Call(callCtx, benchProcedure, args, &body)
		cancel()

		if err != nil {
			res.failed++
			logger.Debug("Benchmark call failed", logger.ClientID(client.ID()), logger.Err(err))
			continue
		}
		res.latencies = append(res.latencies, time.Since(start))
	}
	return res
}

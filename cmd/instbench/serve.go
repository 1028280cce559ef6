package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nersc/instbench/benchmark"
	"github.com/nersc/instbench/cinterop"
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/matmul"
	"github.com/nersc/instbench/stats"
)

func newServeCmd(e *env) *cobra.Command {
	var (
		metricsAddr string
		socketDir   string
		stdio       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve matmul requests to a host process",
		Long: `Listens on a fresh unix socket and prints the cinterop announcement
(header, socket path, token) on stdout.  With --stdio, requests are also
read from stdin and answered on stdout, and the server exits when stdin is
closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Enabled = metricsAddr != ""
				cfg.Metrics.Addr = metricsAddr
			}
			if cmd.Flags().Changed("socket-dir") {
				cfg.Server.SocketDir = socketDir
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			factory := stats.NewPrometheusFactory(reg, cfg.Metrics.Namespace)

			bench := matmul.NewBench(matmul.BenchParams{Stats: factory})
			d := benchmark.NewDispatcher(benchmark.DispatcherParams{
				C:      bench.ExecuteC,
				CXX:    bench.ExecuteCXX,
				Logger: &e.logger,
				Stats:  factory,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			params := cinterop.ServerParams{
				SocketDir:      cfg.Server.SocketDir,
				Announce:       cmd.OutOrStdout(),
				MaxConnections: cfg.Server.MaxConnections,
				Logger:         &e.logger,
			}
			if stdio {
				params.Stdin = cmd.InOrStdin()
				params.Stdout = cmd.OutOrStdout()
			}
			g.Go(func() error {
				defer cancel()
				return cinterop.StartServer(ctx, params, cinterop.MatmulProcessor(d, e.logger))
			})

			if cfg.Metrics.Enabled {
				srv := &http.Server{
					Addr:              cfg.Metrics.Addr,
					Handler:           stats.NewMetricsHandler(reg),
					ReadHeaderTimeout: 10 * time.Second,
				}
				g.Go(func() error {
					e.logger.Info().Str("addr", srv.Addr).Msg("serving metrics")
					err := srv.ListenAndServe()
					if err == http.ErrServerClosed {
						return nil
					}
					return errors.Wrap(err, "metrics server")
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					return srv.Shutdown(shutdownCtx)
				})
			}

			return g.Wait()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (h2c)")
	flags.StringVar(&socketDir, "socket-dir", "", "directory for the unix socket")
	flags.BoolVar(&stdio, "stdio", false, "also serve requests on stdin/stdout")
	return cmd
}

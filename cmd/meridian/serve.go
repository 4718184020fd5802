package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridiandb/meridian/pkg/database"
	"github.com/meridiandb/meridian/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run metrics and health endpoints while the store stays open",
	Long: `Starts a background collector that keeps the tree/entry gauges
current and exposes /metrics, /health, /ready and /live over HTTP,
then blocks until interrupted. The store is snapshotted to disk on
shutdown, same as any other subcommand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics.SetVersion(Version)
		metrics.RegisterComponent("store", true, "loaded")
		metrics.RegisterComponent("database", true, "ready")

		collector := database.NewMetricsCollector(db)
		collector.Start()

		addr, _ := cmd.Flags().GetString("metrics-addr")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		srv := &http.Server{Addr: addr, Handler: mux}
		srvErrCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				srvErrCh <- err
			}
		}()

		fmt.Printf("✓ Metrics collector started\n")
		fmt.Printf("✓ Serving on http://%s\n", addr)
		fmt.Printf("  - Metrics:   http://%s/metrics\n", addr)
		fmt.Printf("  - Health:    http://%s/health\n", addr)
		fmt.Printf("  - Readiness: http://%s/ready\n", addr)
		fmt.Printf("  - Liveness:  http://%s/live\n", addr)
		fmt.Println("Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-srvErrCh:
			fmt.Fprintf(os.Stderr, "\nmetrics server error: %v\n", err)
		}

		collector.Stop()
		_ = srv.Close()

		return persistAndClose()
	},
}

func init() {
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics and health endpoints on")
}

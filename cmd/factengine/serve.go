package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/factengine/pkg/authorization"
	"github.com/cuemby/factengine/pkg/engine"
	"github.com/cuemby/factengine/pkg/fork"
	"github.com/cuemby/factengine/pkg/log"
	"github.com/cuemby/factengine/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an in-process engine with the persistent fork enabled",
	Long: `serve starts a long-lived factengine process: a durable outbox
drains to a remote feed in the background (a no-op remote by default,
for local demos) and a metrics/health HTTP endpoint is exposed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Root().PersistentFlags().GetString("store-dir")
		if storeDir == "" {
			storeDir = "./factengine-data"
		}
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		outboxDir := storeDir + "/outbox"
		outbox, err := fork.NewOutbox(outboxDir)
		if err != nil {
			return fmt.Errorf("failed to open outbox: %w", err)
		}

		persistent := fork.NewPersistent(fork.NoopRemoteFeed{}, outbox)

		eng, err := engine.New(engine.Config{
			StoreDir:      storeDir,
			DefaultPolicy: authorization.DefaultPermissive,
			Fork:          persistent,
		})
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}

		collector := metrics.NewCollector(outbox)
		collector.Start()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("store", true, "ready")
		metrics.RegisterComponent("fork", true, "ready")

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/health", metrics.HealthHandler())
			mux.Handle("/ready", metrics.ReadyHandler())
			mux.Handle("/live", metrics.LivenessHandler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()

		fmt.Printf("factengine serving (instance %s)\n", eng.ID())
		fmt.Printf("  store directory: %s\n", storeDir)
		fmt.Printf("  metrics endpoint: http://%s/metrics\n", metricsAddr)
		fmt.Printf("  health endpoint:  http://%s/health\n", metricsAddr)
		fmt.Println("press Ctrl+C to stop")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nshutting down...")
		collector.Stop()
		if err := eng.Close(); err != nil {
			return fmt.Errorf("failed to shut down cleanly: %w", err)
		}
		fmt.Println("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address the metrics/health HTTP endpoint binds to")
}

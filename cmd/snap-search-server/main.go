// Package main provides the Snap Search server binary.
// This server exposes the HTTP API for photo search, ingestion, and analysis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/snapsearch/snap-search/internal/config"
	"github.com/snapsearch/snap-search/internal/pkg/logger"
	"github.com/snapsearch/snap-search/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snap-search-server",
		Short: "Snap Search Server - natural language photo search",
		Long: `Snap Search Server provides natural language photo search over HTTP.

The server exposes:
  - HTTP API on :8080 (configurable) for search, ingest, and analysis
  - Prometheus metrics on /metrics (configurable)

Examples:
  snap-search-server                         # Start with defaults
  snap-search-server --port 9090             # Custom HTTP port
  snap-search-server --redis redis://r:6379  # Redis-backed storage
  snap-search-server --bus kafka             # Kafka event bus`,
		RunE:         runServer,
		SilenceUsage: true,
	}

	// Server flags
	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.Flags().Int("port", 0, "HTTP server port (overrides config)")
	rootCmd.Flags().String("host", "", "server host (overrides config)")
	rootCmd.Flags().String("redis", "", "Redis URL (overrides config)")
	rootCmd.Flags().String("bus", "", "event bus type: memory or kafka (overrides config)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("snap-search-server %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	redisURL, _ := cmd.Flags().GetString("redis")
	busType, _ := cmd.Flags().GetString("bus")

	// Load config
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Flag overrides
	if port != 0 {
		appCfg.Port = port
	}
	if host != "" {
		appCfg.Host = host
	}
	if redisURL != "" {
		appCfg.Redis.URL = redisURL
	}
	if busType != "" {
		appCfg.Bus.Type = busType
	}
	if verbose {
		appCfg.Log.Level = "debug"
	}

	log := logger.New(appCfg.Log.Level, appCfg.Log.Format)

	log.Info("Starting Snap Search Server",
		"version", version,
		"host", appCfg.Host,
		"port", appCfg.Port,
		"bus", appCfg.Bus.Type,
	)

	srvCfg := server.DefaultConfig()
	srvCfg.Host = appCfg.Host
	srvCfg.Port = appCfg.Port
	srvCfg.Version = version

	srv, err := server.New(srvCfg, *appCfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		log.Info("Shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/imread/internal/config"
	"github.com/MeKo-Tech/imread/internal/server"
	"github.com/MeKo-Tech/imread/internal/workerpool"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP decode service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP decode server",
	Long: `Start an HTTP server that decodes batches of server-local image paths.

Endpoints:
  POST /v1/read     decode a batch and return index-aligned results
  GET  /v1/ws/read  websocket; streams one event per decoded item
  GET  /formats     list decodable formats
  GET  /health      health check
  GET  /metrics     Prometheus metrics

Example:
  imread serve --host 0.0.0.0 --port 8080 --threads 8`,
	RunE: runServeCommand,
}

// serveOptions is the effective configuration of the serve command.
type serveOptions struct {
	Host            string
	Port            int
	CORSOrigin      string
	ShutdownTimeout int
	MaxPaths        int
	Threads         int
	DefaultMode     string
}

func configToServeOptions(cfg *config.Config, cmd *cobra.Command) serveOptions {
	opts := serveOptions{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		CORSOrigin:      cfg.Server.CORSOrigin,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxPaths:        cfg.Server.MaxPaths,
		Threads:         cfg.Pool.NumThreads,
		DefaultMode:     cfg.Read.Mode,
	}

	if cmd.Flags().Changed("host") {
		opts.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		opts.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		opts.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		opts.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("max-paths") {
		opts.MaxPaths, _ = cmd.Flags().GetInt("max-paths")
	}
	if cmd.Flags().Changed("threads") {
		opts.Threads, _ = cmd.Flags().GetInt("threads")
	}
	if cmd.Flags().Changed("mode") {
		opts.DefaultMode, _ = cmd.Flags().GetString("mode")
	}

	return opts
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	opts := configToServeOptions(GetConfig(), cmd)

	switch opts.DefaultMode {
	case server.ModeTolerant, server.ModeVerbose, server.ModeBytes:
	default:
		return fmt.Errorf("invalid mode: %s", opts.DefaultMode)
	}

	threads := opts.Threads
	if threads == 0 {
		threads = workerpool.DefaultSize()
	}
	poolCfg, err := workerpool.Configure(threads)
	if err != nil {
		return fmt.Errorf("failed to configure worker pool: %w", err)
	}

	srv := server.NewServer(server.Config{
		Host:        opts.Host,
		Port:        opts.Port,
		CORSOrigin:  opts.CORSOrigin,
		MaxPaths:    opts.MaxPaths,
		DefaultMode: opts.DefaultMode,
		Logger:      slog.Default(),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		slog.Info("Starting imread server", "host", opts.Host, "port", opts.Port, "workers", poolCfg.NumThreads)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", opts.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(opts.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("max-paths", 1000, "maximum paths per request")
	serveCmd.Flags().IntP("threads", "t", 0, "worker threads (default: one per CPU)")
	serveCmd.Flags().String("mode", "tolerant", "default read mode: tolerant, verbose, bytes")
}

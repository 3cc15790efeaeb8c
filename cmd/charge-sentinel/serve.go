package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charge-sentinel/internal/api/handlers"
	"charge-sentinel/internal/metrics"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST and websocket API",
	Long: `Serves event ingestion, incident management, traffic logs and live streams
under /api/v1. With --simulate the built-in generator feeds the pipeline as well.`,
	RunE: runServe,
}

var (
	servePort     string
	serveSimulate bool
)

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "API server port (defaults to api.port)")
	serveCmd.Flags().BoolVar(&serveSimulate, "simulate", false, "Feed simulated charge point traffic into the pipeline")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger, err := loadConfig()
	if err != nil {
		return err
	}
	port := config.API.Port
	if servePort != "" {
		port = servePort
	}

	registry := metrics.CreateCustomRegistry()
	m := metrics.NewPrometheusMetrics(registry)

	a, err := newApp(ctx, m)
	if err != nil {
		return err
	}
	defer a.close()

	hub := handlers.NewHub(logger)
	a.processor.AddNotifier(hub)

	h := handlers.NewHandlers(a.processor, a.store, a.traffic, hub, config.Rules, logger)
	router := handlers.NewRouter(h, registry, config.API.AllowedOrigins)

	if serveSimulate {
		go runSimulation(ctx, a)
	}

	// no write timeout: streams stay open
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	logger.Infof("API server starting on port %s", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

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

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Pinzun/simula-ameba/internal/app"
	"github.com/Pinzun/simula-ameba/internal/config"
	"github.com/Pinzun/simula-ameba/internal/handlers"
	"github.com/Pinzun/simula-ameba/internal/services"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "hydro-api")
	if err := run(cfg, logger); err != nil {
		logger.Fatal(context.Background(), "[SERVER_ERROR] Server failed", logging.Fields{}, err)
	}
}

func run(cfg *config.Config, logger *logging.StructuredLogger) error {
	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting hydro model inspection server", logging.Fields{
		"version":      app.Version,
		"server_host":  cfg.Server.Host,
		"server_port":  cfg.Server.Port,
		"source":       cfg.Hydro.Source,
		"natural_mode": cfg.Hydro.NaturalMode,
	})

	metricsCollector := metrics.NewCollector("hydro_platform")

	repo, closeSource, err := app.OpenSource(ctx, cfg, logger, metricsCollector)
	if err != nil {
		return fmt.Errorf("failed to open source backend: %w", err)
	}
	defer closeSource()

	builder := services.NewHydroService(cfg.BuildOptions(), logger, metricsCollector)
	model := services.NewModelService(builder, repo, logger, metricsCollector)

	// A failed first build leaves the server up with /health reporting
	// not_built; POST /api/v1/rebuild or SIGHUP retries.
	if _, err := model.Rebuild(ctx); err != nil {
		logger.Error(ctx, "[STARTUP_BUILD_ERROR] Initial model build failed", logging.Fields{}, err)
	}

	router := mux.NewRouter()
	handlers.NewHydroHandler(model, logger, metricsCollector).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	for {
		select {
		case err, ok := <-serveErr:
			if ok {
				return err
			}
			return nil

		case sig := <-signals:
			if sig == syscall.SIGHUP {
				logger.Info(ctx, "[SIGNAL_REBUILD] Rebuilding model on SIGHUP", logging.Fields{})
				if _, err := model.Rebuild(ctx); err != nil {
					logger.Error(ctx, "[SIGNAL_REBUILD_ERROR] Model rebuild failed", logging.Fields{}, err)
				}
				continue
			}
			return shutdown(server, logger)
		}
	}
}

func shutdown(server *http.Server, logger *logging.StructuredLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/api"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/config"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/engine"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/extractors"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/metrics"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/repo"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/services"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/utils"
)

func main() {
	var (
		configPath string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&serve, "serve", false, "Run the gRPC alignment service instead of the configured session job")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := repo.NewModelStore(cfg.Store.Dir, logger)
	if err != nil {
		logger.Error("failed to open model store", slog.String("dir", cfg.Store.Dir), slog.Any("error", err))
		os.Exit(1)
	}

	// Validate already accepted the policy.
	policy, _ := models.ParseMismatchPolicy(cfg.Alignment.MismatchPolicy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !serve {
		if !cfg.HasSession() {
			logger.Error("no session configured; set session.name or pass -serve")
			os.Exit(2)
		}
		aligner := engine.NewAligner(
			logger,
			extractors.NewEdgeExtractor(),
			engine.NewIndexPairer(policy),
			engine.NewResidualAnalyzer(cfg.Alignment.ResidualThreshold),
			store,
		)
		report, err := services.NewSessionRunner(logger, aligner).Run(ctx, cfg.Session)
		if err != nil {
			logger.Error("session alignment failed", slog.String("session", cfg.Session.Name), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("session aligned",
			slog.String("session", cfg.Session.Name),
			slog.String("model_id", report.Alignment.ModelID),
			slog.Int("outputs", len(report.Outputs)),
			slog.Int("warnings", len(report.Alignment.Warnings)),
		)
		return
	}

	logger.Info("starting fnt-align", slog.String("address", cfg.Server.Address), slog.String("store", store.Dir()))

	alignService := services.NewAlignmentService(logger, store, policy, cfg.Alignment.ResidualThreshold)

	server, err := api.NewServer(cfg.Server, alignService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("fnt-align stopped")
}

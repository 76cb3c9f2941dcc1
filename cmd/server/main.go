// Package main is the entry point for the spendlens transaction analysis service.
// It wires the analysis pipeline behind the HTTP API and the persistent progress
// channel, then runs until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/spendlens/internal/config"
	"github.com/aristath/spendlens/internal/modules/analysis"
	"github.com/aristath/spendlens/internal/progress"
	"github.com/aristath/spendlens/internal/scheduler"
	"github.com/aristath/spendlens/internal/server"
	"github.com/aristath/spendlens/pkg/logger"
)

// isolationSeed keeps isolation forest results stable across identical batches
const isolationSeed = 42

// getEnv retrieves an environment variable value, returning a fallback if the variable
// is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// outlierModel picks the anomaly model named by the configuration
func outlierModel(cfg *config.Config) analysis.OutlierModel {
	if cfg.AnomalyModel == config.AnomalyModelIsolation {
		return analysis.NewIsolationForest(cfg.AnomalyContamination, isolationSeed)
	}
	return analysis.ZScoreModel{Threshold: cfg.AnomalyZThreshold}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	startedAt := time.Now()
	version := getEnv("VERSION", "dev")
	log.Info().Str("version", version).Msg("Starting spendlens")

	// Analysis pipeline
	categorizer := analysis.NewCategorizer(
		analysis.NewKeywordClassifier(nil),
		cfg.CategoryLabels,
		cfg.ClassifierWorkers,
		log,
	)
	detector := analysis.NewAnomalyDetector(outlierModel(cfg))
	orchestrator := analysis.NewOrchestrator(categorizer, detector, log)
	log.Info().
		Strs("labels", categorizer.Labels()).
		Str("anomaly_model", cfg.AnomalyModel).
		Int("workers", cfg.ClassifierWorkers).
		Msg("Analysis pipeline initialized")

	registry := progress.NewRegistry(cfg.ProgressSendTimeout, log)

	srv := server.New(server.Config{
		Log:         log,
		Analyzer:    orchestrator,
		Registry:    registry,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Version:     version,
		StartedAt:   startedAt,
		SendTimeout: cfg.ProgressSendTimeout,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Periodic status push to connected channels
	sched := scheduler.New(log)
	if cfg.StatusBroadcastSchedule != "" {
		job := scheduler.NewStatusBroadcastJob(registry, startedAt, log)
		if err := sched.AddJob(cfg.StatusBroadcastSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.StatusBroadcastSchedule).Msg("Failed to schedule status broadcast")
		}
	} else {
		log.Info().Msg("Status broadcast disabled")
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

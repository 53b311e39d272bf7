package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/weather-pipeline-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-pipeline-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-pipeline-service/internal/adapter/openweather"
	"github.com/couchcryptid/weather-pipeline-service/internal/config"
	"github.com/couchcryptid/weather-pipeline-service/internal/observability"
	"github.com/couchcryptid/weather-pipeline-service/internal/pipeline"
	"github.com/couchcryptid/weather-pipeline-service/internal/prediction"
	"github.com/couchcryptid/weather-pipeline-service/internal/scheduler"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	fetcher := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, metrics, logger, clock)

	// Prediction degrades to "unavailable" when the artifact cannot be loaded.
	model, err := prediction.LoadModel(cfg.ModelPath)
	if err != nil {
		logger.Warn("model not loaded; predictions unavailable", "path", cfg.ModelPath, "error", err)
		metrics.ModelAvailable.Set(0)
	} else {
		logger.Info("model loaded", "path", cfg.ModelPath, "kind", model.Kind(), "target", model.Target(), "features", len(model.Features()))
		metrics.ModelAvailable.Set(1)
	}
	predictor := prediction.NewPredictor(model, cfg.ModelStrictFeatures, logger, metrics)

	// Publishing run results is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var loader pipeline.BatchLoader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, clock)
		loader = writer
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	p := pipeline.New(fetcher, loader, logger, metrics, clock)

	srv := httpadapter.NewServer(cfg, p, predictor, p, logger)

	var sched *scheduler.Scheduler
	if cfg.RunInterval > 0 {
		sched = scheduler.New(p, cfg.Cities, cfg.RunInterval, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start periodic runs.
	if sched != nil {
		if err := sched.Start(); err != nil {
			logger.Error("scheduler start error", "error", err)
			stop()
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

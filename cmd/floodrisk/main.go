package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/fast2sms"
	httpadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/mapbox"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/mlclient"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/onnx"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/telegram"
	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/evaluator"
	"github.com/couchcryptid/flood-risk-service/internal/feed"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		logger.Error("failed to open reading store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	locator := domain.DefaultLocator()
	if cfg.UnitLocationsFile != "" {
		if locator, err = domain.LoadLocatorFile(cfg.UnitLocationsFile); err != nil {
			logger.Error("failed to load unit locations", "path", cfg.UnitLocationsFile, "error", err)
			os.Exit(1)
		}
	}

	predictor, closePredictor, err := newPredictor(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize predictor", "predictor", cfg.Predictor, "error", err)
		os.Exit(1)
	}
	defer closePredictor.Close()

	transport, err := newTransport(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize alert transport", "transport", cfg.AlertTransport, "error", err)
		os.Exit(1)
	}

	policy, err := alert.ParsePolicy(cfg.AlertPolicy)
	if err != nil {
		logger.Error("invalid alert policy", "error", err)
		os.Exit(1)
	}
	coordinator := alert.NewCoordinator(transport, alert.Config{
		Policy:          policy,
		Recipient:       cfg.AlertRecipient,
		DispatchTimeout: cfg.DispatchTimeout,
		RatePerMinute:   cfg.DispatchRatePerMinute,
	}, logger, metrics)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	opts := evaluator.Options{Workers: cfg.EvaluationWorkers, Geocoder: geocoder}

	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	var ingest *pipeline.Pipeline
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		ingest = pipeline.New(reader, pipeline.NewTransformer(), pipeline.NewStoreLoader(store), logger, metrics, cfg.BatchSize)
		opts.Publisher = writer
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers, "source_topic", cfg.KafkaSourceTopic)
	} else {
		logger.Info("kafka disabled, serving stored and demo readings only")
	}

	sensorFeed := feed.New(store, cfg.DemoUnits, nil)
	eval := evaluator.New(sensorFeed, predictor, locator, coordinator, opts, logger, metrics)

	scheduler, err := evaluator.NewScheduler(eval, cfg.EvaluationSchedule, logger)
	if err != nil {
		logger.Error("invalid evaluation schedule", "schedule", cfg.EvaluationSchedule, "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, eval, readiness{store: store, evaluator: eval}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if ingest != nil {
		go func() {
			if err := ingest.Run(ctx); err != nil {
				logger.Error("ingest pipeline error", "error", err)
			}
		}()
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn("evaluation cycle still running at shutdown deadline")
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newPredictor selects the regressor named by PREDICTOR. The returned closer
// releases model resources.
func newPredictor(cfg *config.Config, logger *slog.Logger) (domain.Predictor, io.Closer, error) {
	switch cfg.Predictor {
	case config.PredictorONNX:
		p, err := onnx.NewPredictor(cfg.ONNXModelPath, cfg.ONNXRuntimeLib)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using onnx predictor", "model", cfg.ONNXModelPath)
		return p, p, nil
	case config.PredictorHTTP:
		logger.Info("using remote predictor", "url", cfg.MLServiceURL)
		return mlclient.NewClient(cfg.MLServiceURL, cfg.MLServiceTimeout), nopCloser{}, nil
	default:
		logger.Info("using reference linear predictor")
		return domain.ReferenceModel, nopCloser{}, nil
	}
}

func newTransport(cfg *config.Config, logger *slog.Logger) (alert.Transport, error) {
	switch cfg.AlertTransport {
	case config.TransportFast2SMS:
		return fast2sms.NewClient(cfg.Fast2SMSAPIKey, cfg.Fast2SMSURL, cfg.DispatchTimeout, logger), nil
	case config.TransportTelegram:
		return telegram.NewClient(cfg.TelegramBotToken, "", cfg.DispatchTimeout, logger)
	case config.TransportLog:
		return alert.NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.AlertTransport)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// readiness reports ready once the store answers and an evaluation cycle has completed.
type readiness struct {
	store     *sqlstore.Store
	evaluator *evaluator.Evaluator
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("reading store: %w", err)
	}
	return r.evaluator.CheckReadiness(ctx)
}

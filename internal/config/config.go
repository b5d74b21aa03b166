package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Predictor backends.
const (
	PredictorLinear = "linear"
	PredictorONNX   = "onnx"
	PredictorHTTP   = "http"
)

// Alert transports.
const (
	TransportLog      = "log"
	TransportFast2SMS = "fast2sms"
	TransportTelegram = "telegram"
)

// Alert policies.
const (
	AlertPolicyOnce  = "once"
	AlertPolicyEvery = "every"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka ingestion and publishing. Disabled when no brokers are configured.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaSourceTopic     string
	KafkaGroupID         string
	KafkaAssessmentTopic string
	KafkaAlertTopic      string

	BatchSize          int
	BatchFlushInterval time.Duration

	StoreDriver string
	StoreDSN    string

	// Risk predictor selection.
	Predictor        string
	ONNXModelPath    string
	ONNXRuntimeLib   string
	MLServiceURL     string
	MLServiceTimeout time.Duration

	EvaluationSchedule string
	EvaluationWorkers  int
	DemoUnits          []string
	UnitLocationsFile  string

	// Alert coordinator and notification transport.
	AlertPolicy           string
	AlertTransport        string
	AlertRecipient        string
	DispatchTimeout       time.Duration
	DispatchRatePerMinute int
	Fast2SMSAPIKey        string
	Fast2SMSURL           string
	TelegramBotToken      string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mlTimeout, err := parseDuration("ML_SERVICE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	dispatchTimeout, err := parseDuration("DISPATCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	workers, err := parseIntInRange("EVALUATION_WORKERS", 4, 1, 64)
	if err != nil {
		return nil, err
	}
	ratePerMinute, err := parseIntInRange("DISPATCH_RATE_PER_MINUTE", 0, 0, 6000)
	if err != nil {
		return nil, err
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:         kafkaEnabled,
		KafkaBrokers:         brokers,
		KafkaSourceTopic:     sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "sensor-readings"),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "flood-risk"),
		KafkaAssessmentTopic: sharedcfg.EnvOrDefault("KAFKA_ASSESSMENT_TOPIC", "flood-risk-assessments"),
		KafkaAlertTopic:      sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "flood-alerts"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		StoreDriver: sharedcfg.EnvOrDefault("STORE_DRIVER", "sqlite3"),
		StoreDSN:    sharedcfg.EnvOrDefault("STORE_DSN", "file:flood_risk.db?_busy_timeout=5000"),

		Predictor:        strings.ToLower(sharedcfg.EnvOrDefault("PREDICTOR", PredictorLinear)),
		ONNXModelPath:    os.Getenv("ONNX_MODEL_PATH"),
		ONNXRuntimeLib:   os.Getenv("ONNX_RUNTIME_LIB"),
		MLServiceURL:     strings.TrimRight(os.Getenv("ML_SERVICE_URL"), "/"),
		MLServiceTimeout: mlTimeout,

		EvaluationSchedule: sharedcfg.EnvOrDefault("EVALUATION_SCHEDULE", "@every 1m"),
		EvaluationWorkers:  workers,
		DemoUnits:          splitList(sharedcfg.EnvOrDefault("DEMO_UNITS", "DELHI_01,BLR_01,KOL_01,CHN_01")),
		UnitLocationsFile:  os.Getenv("UNIT_LOCATIONS_FILE"),

		AlertPolicy:           strings.ToLower(sharedcfg.EnvOrDefault("ALERT_POLICY", AlertPolicyOnce)),
		AlertTransport:        strings.ToLower(sharedcfg.EnvOrDefault("ALERT_TRANSPORT", TransportLog)),
		AlertRecipient:        os.Getenv("ALERT_RECIPIENT"),
		DispatchTimeout:       dispatchTimeout,
		DispatchRatePerMinute: ratePerMinute,
		Fast2SMSAPIKey:        os.Getenv("FAST2SMS_API_KEY"),
		Fast2SMSURL:           sharedcfg.EnvOrDefault("FAST2SMS_URL", "https://www.fast2sms.com/dev/bulkV2"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
		}
		if cfg.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required")
		}
	}

	switch cfg.StoreDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be sqlite3 or postgres", cfg.StoreDriver)
	}

	switch cfg.Predictor {
	case PredictorLinear:
	case PredictorONNX:
		if cfg.ONNXModelPath == "" {
			return errors.New("PREDICTOR is onnx but ONNX_MODEL_PATH is not set")
		}
	case PredictorHTTP:
		if cfg.MLServiceURL == "" {
			return errors.New("PREDICTOR is http but ML_SERVICE_URL is not set")
		}
	default:
		return fmt.Errorf("invalid PREDICTOR %q: must be linear, onnx or http", cfg.Predictor)
	}

	if _, err := cron.ParseStandard(cfg.EvaluationSchedule); err != nil {
		return fmt.Errorf("invalid EVALUATION_SCHEDULE: %w", err)
	}

	switch cfg.AlertPolicy {
	case AlertPolicyOnce, AlertPolicyEvery:
	default:
		return fmt.Errorf("invalid ALERT_POLICY %q: must be once or every", cfg.AlertPolicy)
	}

	switch cfg.AlertTransport {
	case TransportLog:
	case TransportFast2SMS:
		if cfg.Fast2SMSAPIKey == "" {
			return errors.New("ALERT_TRANSPORT is fast2sms but FAST2SMS_API_KEY is not set")
		}
	case TransportTelegram:
		if cfg.TelegramBotToken == "" {
			return errors.New("ALERT_TRANSPORT is telegram but TELEGRAM_BOT_TOKEN is not set")
		}
	default:
		return fmt.Errorf("invalid ALERT_TRANSPORT %q: must be log, fast2sms or telegram", cfg.AlertTransport)
	}
	if cfg.AlertTransport != TransportLog && cfg.AlertRecipient == "" {
		return errors.New("ALERT_RECIPIENT is required for ALERT_TRANSPORT " + cfg.AlertTransport)
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseIntInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// splitList splits a comma-separated list, dropping blanks and duplicates.
func splitList(value string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(value, ",") {
		p := strings.TrimSpace(part)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

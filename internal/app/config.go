package app

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/yungbote/shipdash-backend/internal/data/db"
	"github.com/yungbote/shipdash-backend/internal/observability"
	"github.com/yungbote/shipdash-backend/internal/pkg/envutil"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
	"github.com/yungbote/shipdash-backend/internal/services"
)

type Config struct {
	Port    string
	LogMode string

	DatabaseURL         string
	DatabaseName        string
	ShipmentsCollection string
	DelayedCollection   string
	EmailsCollection    string

	WebhookURL         string
	WebhookDelay       time.Duration
	WebhookTimeout     time.Duration
	WebhookMaxAttempts int
	WebhookRetryBase   time.Duration
	QueueURL           string
	WorkerConcurrency  int

	UploadMaxBytes  int64
	RecordCoercion  services.CoercionMode
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	Otel observability.OtelConfig
}

// MemoryStore reports whether DATABASE_URL selects the in-process store.
func (c Config) MemoryStore() bool {
	u, err := url.Parse(c.DatabaseURL)
	return err == nil && strings.EqualFold(u.Scheme, "memory")
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),

		DatabaseURL:         envutil.String("DATABASE_URL", ""),
		ShipmentsCollection: envutil.String("SHIPMENTS_COLLECTION", "Shipments"),
		DelayedCollection:   envutil.String("SHIPMENTS_DELAYED_COLLECTION", "ShipmentDelayed"),
		EmailsCollection:    envutil.String("EMAILS_COLLECTION", ""),

		WebhookURL:         envutil.String("SHIPMENT_WEBHOOK_URL", ""),
		WebhookDelay:       envutil.Duration("WEBHOOK_DELAY", 8*time.Second),
		WebhookTimeout:     envutil.Duration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookMaxAttempts: envutil.Int("WEBHOOK_MAX_ATTEMPTS", 3),
		WebhookRetryBase:   envutil.Duration("WEBHOOK_RETRY_BASE", 5*time.Second),
		QueueURL:           envutil.String("WEBHOOK_QUEUE_URL", "memory://"),
		WorkerConcurrency:  envutil.Int("WORKER_CONCURRENCY", 2),

		UploadMaxBytes:  envutil.Int64("UPLOAD_MAX_BYTES", 32<<20),
		RecordCoercion:  services.ParseCoercionMode(envutil.String("RECORD_COERCION", string(services.CoercionStrict))),
		CORSOrigins:     envutil.List("CORS_ALLOWED_ORIGINS", nil),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 30*time.Second),

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "shipdash"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float64("OTEL_SAMPLER_RATIO", 1),
		},
	}
	cfg.DatabaseName = envutil.String("DATABASE_NAME", db.DatabaseFromURL(cfg.DatabaseURL))

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.WebhookURL == "" {
		missing = append(missing, "SHIPMENT_WEBHOOK_URL")
	}
	if cfg.EmailsCollection == "" {
		missing = append(missing, "EMAILS_COLLECTION")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment: %s", strings.Join(missing, ", "))
	}
	if cfg.WebhookMaxAttempts < 1 {
		cfg.WebhookMaxAttempts = 1
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}

	if log != nil {
		log.Info("Configuration loaded",
			"port", cfg.Port,
			"database", cfg.DatabaseName,
			"memory_store", cfg.MemoryStore(),
			"shipments_collection", cfg.ShipmentsCollection,
			"delayed_collection", cfg.DelayedCollection,
			"emails_collection", cfg.EmailsCollection,
			"webhook_delay", cfg.WebhookDelay.String(),
			"webhook_max_attempts", cfg.WebhookMaxAttempts,
			"record_coercion", string(cfg.RecordCoercion),
			"otel_enabled", cfg.Otel.Enabled,
		)
	}
	return cfg, nil
}

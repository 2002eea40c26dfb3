package app

import (
	"fmt"
	"time"

	"github.com/yungbote/shipdash-backend/internal/jobs/pipeline/webhook_notify"
	jobruntime "github.com/yungbote/shipdash-backend/internal/jobs/runtime"
	"github.com/yungbote/shipdash-backend/internal/jobs/worker"
	"github.com/yungbote/shipdash-backend/internal/observability"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
	"github.com/yungbote/shipdash-backend/internal/services"
)

type Services struct {
	// Ingestion + queries
	Ingestion     services.IngestionService
	ShipmentQuery services.ShipmentQueryService

	// Records
	Emails      services.RecordService
	Collections services.CollectionService

	// Job infra
	JobService  services.JobService
	JobRegistry *jobruntime.Registry
	JobWorker   *worker.Worker
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	jobService := services.NewJobService(log, clients.Queue)
	metrics.RegisterQueueDepth(log, jobService.Depth)

	ingestion := services.NewIngestionService(log, repos.Shipments, jobService, metrics, services.IngestionConfig{
		WebhookDelay:       cfg.WebhookDelay,
		WebhookMaxAttempts: cfg.WebhookMaxAttempts,
	})
	shipmentQuery := services.NewShipmentQueryService(log, repos.Delayed, time.Now)

	emails := services.NewRecordService(log, repos.Emails, services.RecordServiceConfig{
		SearchFields: services.EmailSearchFields,
		Coercer:      services.Coercer{Mode: cfg.RecordCoercion, ValidateEmail: true},
	})
	collections := services.NewCollectionService(log, repos.Provider, services.Coercer{Mode: cfg.RecordCoercion})

	// Job registry
	jobRegistry := jobruntime.NewRegistry()
	webhook := webhook_notify.New(log, cfg.WebhookURL, cfg.WebhookTimeout, metrics)
	if err := jobRegistry.Register(webhook); err != nil {
		return Services{}, fmt.Errorf("register %s: %w", webhook.Type(), err)
	}
	jobWorker := worker.NewWorker(log, clients.Queue, jobRegistry, metrics, worker.Config{
		Concurrency: cfg.WorkerConcurrency,
		RetryBase:   cfg.WebhookRetryBase,
	})

	return Services{
		Ingestion:     ingestion,
		ShipmentQuery: shipmentQuery,
		Emails:        emails,
		Collections:   collections,
		JobService:    jobService,
		JobRegistry:   jobRegistry,
		JobWorker:     jobWorker,
	}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yungbote/shipdash-backend/internal/data/repos"
	types "github.com/yungbote/shipdash-backend/internal/domain"
	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/normalization"
	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

const sampleSize = 5

type IngestResult struct {
	FileName         string
	Count            int
	WebhookScheduled bool
	Sample           []types.Record
}

// IngestRecorder counts upload outcomes.
type IngestRecorder interface {
	ShipmentsIngested(n int)
	UploadOutcome(outcome string)
}

type IngestionService interface {
	// IngestFile normalizes a spreadsheet and ingests its rows.
	IngestFile(ctx context.Context, fileName string, data []byte) (*IngestResult, error)
	// Ingest bulk-inserts rows and schedules the shipment webhook.
	Ingest(ctx context.Context, fileName string, rows []types.Row) (*IngestResult, error)
}

type IngestionConfig struct {
	WebhookDelay       time.Duration
	WebhookMaxAttempts int
	Normalize          normalization.Options
}

type ingestionService struct {
	log       *logger.Logger
	shipments repos.CollectionRepo
	jobs      JobService
	recorder  IngestRecorder
	cfg       IngestionConfig
}

func NewIngestionService(baseLog *logger.Logger, shipments repos.CollectionRepo, jobSvc JobService, recorder IngestRecorder, cfg IngestionConfig) IngestionService {
	if cfg.WebhookMaxAttempts < 1 {
		cfg.WebhookMaxAttempts = 1
	}
	return &ingestionService{
		log:       baseLog.With("service", "IngestionService"),
		shipments: shipments,
		jobs:      jobSvc,
		recorder:  recorder,
		cfg:       cfg,
	}
}

func (s *ingestionService) IngestFile(ctx context.Context, fileName string, data []byte) (*IngestResult, error) {
	rows, err := normalization.NormalizeBytes(data, fileName, s.cfg.Normalize)
	if err != nil {
		s.outcome("invalid")
		return nil, apierr.New(http.StatusBadRequest, "invalid_spreadsheet", fmt.Errorf("could not read %s: %w", fileName, err))
	}
	return s.Ingest(ctx, fileName, rows)
}

func (s *ingestionService) Ingest(ctx context.Context, fileName string, rows []types.Row) (*IngestResult, error) {
	log := s.log.With("file_name", fileName, "rows", len(rows))

	inserted, err := s.shipments.InsertMany(ctx, rows)
	if err != nil {
		s.outcome("failed")
		var ie *repos.InsertError
		if errors.As(err, &ie) {
			log.Error("Bulk insert failed", "inserted", ie.Inserted, "error", ie.Err)
		} else {
			log.Error("Bulk insert failed", "error", err)
		}
		return nil, fmt.Errorf("ingest %s: %w", fileName, err)
	}
	if s.recorder != nil {
		s.recorder.ShipmentsIngested(inserted)
	}

	scheduled := true
	if _, err := s.jobs.Enqueue(ctx, jobs.TaskWebhookNotify, map[string]any{"fileName": fileName}, s.cfg.WebhookDelay, s.cfg.WebhookMaxAttempts); err != nil {
		// the upload itself succeeded; the notification is best effort
		log.Error("Webhook notification not scheduled", "error", err)
		scheduled = false
	}

	s.outcome("succeeded")
	log.Info("Shipments ingested", "inserted", inserted, "webhook_scheduled", scheduled)
	return &IngestResult{
		FileName:         fileName,
		Count:            inserted,
		WebhookScheduled: scheduled,
		Sample:           sample(rows),
	}, nil
}

func (s *ingestionService) outcome(outcome string) {
	if s.recorder != nil {
		s.recorder.UploadOutcome(outcome)
	}
}

func sample(rows []types.Row) []types.Record {
	n := len(rows)
	if n > sampleSize {
		n = sampleSize
	}
	out := make([]types.Record, 0, n)
	for _, r := range rows[:n] {
		out = append(out, r.Map())
	}
	return out
}

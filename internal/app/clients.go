package app

import (
	"context"
	"fmt"

	"github.com/yungbote/shipdash-backend/internal/data/db"
	"github.com/yungbote/shipdash-backend/internal/jobs/queue"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type Clients struct {
	// Mongo is nil when the in-process store is selected.
	Mongo *db.MongoService
	Queue queue.Queue
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	var mongo *db.MongoService
	if !cfg.MemoryStore() {
		m, err := db.NewMongoService(ctx, log, db.MongoConfig{
			URL:      cfg.DatabaseURL,
			Database: cfg.DatabaseName,
			AppName:  "shipdash",
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init mongo: %w", err)
		}
		mongo = m
	}

	q, err := queue.BuildFromDSN(ctx, cfg.QueueURL, log)
	if err != nil {
		if mongo != nil {
			_ = mongo.Close(ctx)
		}
		return Clients{}, fmt.Errorf("init task queue: %w", err)
	}

	return Clients{Mongo: mongo, Queue: q}, nil
}

func (c *Clients) Close(ctx context.Context, log *logger.Logger) {
	if c == nil {
		return
	}
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			log.Warn("Task queue close failed", "error", err)
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Close(ctx); err != nil {
			log.Warn("Mongo close failed", "error", err)
		}
	}
}

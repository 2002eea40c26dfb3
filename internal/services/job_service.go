package services

import (
	"context"
	"fmt"
	"time"

	types "github.com/yungbote/shipdash-backend/internal/domain"
	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/jobs/queue"
	"github.com/yungbote/shipdash-backend/internal/pkg/ctxutil"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type JobService interface {
	// Enqueue schedules taskType to run no earlier than delay from now.
	Enqueue(ctx context.Context, taskType string, payload map[string]any, delay time.Duration, maxAttempts int) (*types.Task, error)
	Depth(ctx context.Context) (int64, error)
}

type jobService struct {
	log   *logger.Logger
	queue queue.Queue
	now   func() time.Time
}

func NewJobService(baseLog *logger.Logger, q queue.Queue) JobService {
	return &jobService{
		log:   baseLog.With("service", "JobService"),
		queue: q,
		now:   time.Now,
	}
}

func (s *jobService) Enqueue(ctx context.Context, taskType string, payload map[string]any, delay time.Duration, maxAttempts int) (*types.Task, error) {
	if taskType == "" {
		return nil, fmt.Errorf("missing task_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	if delay < 0 {
		delay = 0
	}
	task, err := jobs.NewTask(taskType, payload, s.now().Add(delay), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("build task: %w", err)
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	s.log.Debug("Task enqueued", "task_id", task.ID.String(), "task_type", taskType, "run_at", task.RunAt)
	return task, nil
}

func (s *jobService) Depth(ctx context.Context) (int64, error) {
	return s.queue.Depth(ctx)
}

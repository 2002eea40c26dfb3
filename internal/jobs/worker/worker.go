package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/jobs/queue"
	"github.com/yungbote/shipdash-backend/internal/jobs/runtime"
	"github.com/yungbote/shipdash-backend/internal/pkg/httpx"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

// Recorder observes the result of every task attempt.
type Recorder interface {
	TaskOutcome(taskType, outcome string)
}

type Config struct {
	Concurrency int
	RetryBase   time.Duration
	RetryMax    time.Duration
}

type Worker struct {
	log      *logger.Logger
	queue    queue.Queue
	registry *runtime.Registry
	recorder Recorder
	cfg      Config
	wg       sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, q queue.Queue, registry *runtime.Registry, recorder Recorder, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 5 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5 * time.Minute
	}
	return &Worker{
		log:      baseLog.With("component", "TaskWorker"),
		queue:    q,
		registry: registry,
		recorder: recorder,
		cfg:      cfg,
	}
}

// Start launches the pool. Loops exit when ctx is done or the queue is closed;
// Wait blocks until they have.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting task worker pool", "concurrency", w.cfg.Concurrency)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				w.log.Info("Worker loop stopped", "worker_id", workerID)
				return
			}
			w.log.Warn("Dequeue failed", "worker_id", workerID, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.process(ctx, workerID, task)
	}
}

func (w *Worker) process(ctx context.Context, workerID int, task *jobs.Task) {
	task.Attempt++
	task.Status = jobs.TaskRunning
	jc := runtime.NewContext(ctx, task, w.log.With("worker_id", workerID))

	h, ok := w.registry.Get(task.Type)
	if !ok {
		jc.Log.Warn("No handler registered for task_type")
		jc.Fail("dispatch", &missingHandlerError{TaskType: task.Type}, false)
	} else {
		func() {
			defer func() {
				if r := recover(); r != nil {
					jc.Log.Error("Task handler panic", "panic", r)
					jc.Fail("panic", errFromRecover(r), false)
				}
			}()
			if runErr := h.Run(jc); runErr != nil && jc.Err() == nil {
				// handlers normally call Fail themselves
				jc.Fail("run", runErr, httpx.IsRetryableError(runErr))
			}
		}()
	}

	switch {
	case jc.Err() == nil:
		w.record(task.Type, OutcomeSucceeded)
	case jc.Retryable() && !task.Exhausted():
		w.retry(ctx, jc)
	default:
		jc.Log.Error("Task failed", "stage", task.Stage, "error", jc.Err(), "max_attempts", task.MaxAttempts)
		w.record(task.Type, OutcomeFailed)
	}
}

func (w *Worker) retry(ctx context.Context, jc *runtime.Context) {
	task := jc.Task
	delay := httpx.Backoff(w.cfg.RetryBase, w.cfg.RetryMax, task.Attempt)
	task.RunAt = time.Now().Add(delay)
	task.Status = jobs.TaskQueued

	enqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.queue.Enqueue(enqCtx, task); err != nil {
		jc.Log.Error("Task retry could not be queued", "error", err, "cause", jc.Err())
		w.record(task.Type, OutcomeFailed)
		return
	}
	jc.Log.Warn("Task attempt failed; retry scheduled", "error", jc.Err(), "retry_in", delay.String())
	w.record(task.Type, OutcomeRetried)
}

func (w *Worker) record(taskType, outcome string) {
	if w.recorder != nil {
		w.recorder.TaskOutcome(taskType, outcome)
	}
}

type missingHandlerError struct{ TaskType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for task_type=" + e.TaskType
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }

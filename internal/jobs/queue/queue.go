package queue

import (
	"context"
	"errors"

	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
)

var ErrClosed = errors.New("task queue closed")

// Queue holds delayed tasks. Dequeue blocks until a task is due, the context is
// done, or the queue is closed.
type Queue interface {
	Enqueue(ctx context.Context, task *jobs.Task) error
	Dequeue(ctx context.Context) (*jobs.Task, error)
	Depth(ctx context.Context) (int64, error)
	Close() error
}

package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
)

// MemoryQueue is a process-local delay queue ordered by RunAt. Pending tasks are
// lost on restart.
type MemoryQueue struct {
	mu       sync.Mutex
	items    taskHeap
	capacity int
	changed  chan struct{}
	done     chan struct{}
	closed   bool
	now      func() time.Time
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		capacity: capacity,
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *jobs.Task) error {
	if task == nil {
		return fmt.Errorf("nil task")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return fmt.Errorf("task queue full (capacity=%d)", q.capacity)
	}
	heap.Push(&q.items, task)
	q.broadcastLocked()
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*jobs.Task, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		var wait time.Duration = -1
		changed := q.changed
		if len(q.items) > 0 {
			head := q.items[0]
			wait = head.RunAt.Sub(q.now())
			if wait <= 0 {
				task := heap.Pop(&q.items).(*jobs.Task)
				q.mu.Unlock()
				return task, nil
			}
		}
		q.mu.Unlock()

		var timer *time.Timer
		var timerC <-chan time.Time
		if wait > 0 {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil, ctx.Err()
		case <-q.done:
			stopTimer(timer)
			return nil, ErrClosed
		case <-changed:
			stopTimer(timer)
		case <-timerC:
		}
	}
}

func (q *MemoryQueue) Depth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// broadcastLocked wakes every parked Dequeue so each re-reads the head.
func (q *MemoryQueue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

type taskHeap []*jobs.Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].RunAt.Equal(h[j].RunAt) {
		return h[i].CreatedAt.Before(h[j].CreatedAt)
	}
	return h[i].RunAt.Before(h[j].RunAt)
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any) { *h = append(*h, x.(*jobs.Task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

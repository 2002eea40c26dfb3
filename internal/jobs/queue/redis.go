package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

const (
	defaultRedisKey     = "shipdash:tasks"
	defaultPollInterval = 250 * time.Millisecond
)

// RedisQueue stores tasks in a sorted set scored by due time in unix millis.
// A task is claimed by whichever consumer removes it from the set first, so
// several processes may share one key.
type RedisQueue struct {
	rdb          *goredis.Client
	log          *logger.Logger
	key          string
	pollInterval time.Duration
	done         chan struct{}
	closeOnce    sync.Once
}

func NewRedisQueue(rdb *goredis.Client, baseLog *logger.Logger, key string) *RedisQueue {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisQueue{
		rdb:          rdb,
		log:          baseLog.With("service", "RedisTaskQueue", "key", key),
		key:          key,
		pollInterval: defaultPollInterval,
		done:         make(chan struct{}),
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *jobs.Task) error {
	if task == nil {
		return fmt.Errorf("nil task")
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	return q.rdb.ZAdd(ctx, q.key, goredis.Z{
		Score:  float64(task.RunAt.UnixMilli()),
		Member: string(raw),
	}).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*jobs.Task, error) {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()
	for {
		task, err := q.claimDue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			q.log.Warn("claim due task failed", "error", err)
		}
		if task != nil {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.done:
			return nil, ErrClosed
		case <-ticker.C:
		}
	}
}

func (q *RedisQueue) claimDue(ctx context.Context) (*jobs.Task, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.rdb.ZRangeByScore(ctx, q.key, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 8,
	}).Result()
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		removed, err := q.rdb.ZRem(ctx, q.key, m).Result()
		if err != nil {
			return nil, err
		}
		if removed == 0 {
			// lost the race to another consumer
			continue
		}
		var task jobs.Task
		if err := json.Unmarshal([]byte(m), &task); err != nil {
			q.log.Error("dropping undecodable task", "error", err)
			continue
		}
		return &task, nil
	}
	return nil, nil
}

func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.key).Result()
}

// Close stops parked consumers. Queued tasks stay in Redis.
func (q *RedisQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

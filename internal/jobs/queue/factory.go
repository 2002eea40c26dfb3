package queue

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	redisclient "github.com/yungbote/shipdash-backend/internal/clients/redis"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

// BuildFromDSN picks a backend by URL scheme: memory:// (default) or
// redis://host:port/db?key=name.
func BuildFromDSN(ctx context.Context, dsn string, baseLog *logger.Logger) (Queue, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return NewMemoryQueue(0), nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse queue url: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(parsed.Scheme)) {
	case "memory", "mem", "inmem":
		return NewMemoryQueue(0), nil
	case "redis", "rediss":
		key := parsed.Query().Get("key")
		q := parsed.Query()
		q.Del("key")
		parsed.RawQuery = q.Encode()
		rdb, err := redisclient.NewClient(ctx, baseLog, parsed.String())
		if err != nil {
			return nil, err
		}
		return &closingRedisQueue{RedisQueue: NewRedisQueue(rdb, baseLog, key), closeClient: rdb.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported task queue scheme: %s", parsed.Scheme)
	}
}

// closingRedisQueue also releases the client the factory opened.
type closingRedisQueue struct {
	*RedisQueue
	closeClient func() error
}

func (q *closingRedisQueue) Close() error {
	_ = q.RedisQueue.Close()
	return q.closeClient()
}

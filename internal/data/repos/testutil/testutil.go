package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/shipdash-backend/internal/data/db"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

var errMissingURL = errors.New("missing TEST_MONGO_URL")

var (
	mongoOnce sync.Once
	mongoSvc  *db.MongoService
	mongoErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// Mongo connects once per test binary to TEST_MONGO_URL and skips when unset.
func Mongo(tb testing.TB) *db.MongoService {
	tb.Helper()

	mongoOnce.Do(func() {
		url := os.Getenv("TEST_MONGO_URL")
		if url == "" {
			mongoErr = errMissingURL
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoSvc, mongoErr = db.NewMongoService(ctx, logger.Nop(), db.MongoConfig{
			URL:      url,
			Database: db.DatabaseFromURL(url),
			AppName:  "shipdash-test",
		})
	})

	if errors.Is(mongoErr, errMissingURL) {
		tb.Skip("TEST_MONGO_URL not set; skipping Mongo-backed tests")
	}
	if mongoErr != nil {
		tb.Fatalf("failed to connect mongo: %v", mongoErr)
	}
	return mongoSvc
}

// CollectionName returns a per-test collection name that DropCollection cleans up.
func CollectionName(tb testing.TB, prefix string) string {
	tb.Helper()
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func DropCollection(tb testing.TB, svc *db.MongoService, name string) {
	tb.Helper()
	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.DB().Collection(name).Drop(ctx)
	})
}

package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

const defaultDatabase = "shipdash"

type MongoConfig struct {
	URL            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
}

// MongoService owns the process-wide client. It is created once at startup and
// closed on shutdown.
type MongoService struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Logger
}

func NewMongoService(ctx context.Context, logg *logger.Logger, cfg MongoConfig) (*MongoService, error) {
	serviceLog := logg.With("service", "MongoService")

	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("missing mongo url")
	}
	dbName := strings.TrimSpace(cfg.Database)
	if dbName == "" {
		dbName = DatabaseFromURL(cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	serviceLog.Info("Connected to MongoDB", "database", dbName)

	return &MongoService{client: client, db: client.Database(dbName), log: serviceLog}, nil
}

func (s *MongoService) DB() *mongo.Database { return s.db }

func (s *MongoService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoService) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect MongoDB: %w", err)
	}
	s.log.Info("MongoDB connection closed")
	return nil
}

// DatabaseFromURL returns the database named in the connection string path, or the
// default database when the URL names none.
func DatabaseFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return defaultDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return defaultDatabase
	}
	return name
}

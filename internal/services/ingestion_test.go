package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/shipdash-backend/internal/data/repos"
	types "github.com/yungbote/shipdash-backend/internal/domain"
	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/jobs/queue"
	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type ingestCounts struct {
	mu       sync.Mutex
	ingested int
	outcomes []string
}

func (c *ingestCounts) ShipmentsIngested(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingested += n
}

func (c *ingestCounts) UploadOutcome(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}

type failingRepo struct {
	repos.CollectionRepo
	err error
}

func (f failingRepo) InsertMany(context.Context, []records.Row) (int, error) {
	return 2, &repos.InsertError{Attempted: 3, Inserted: 2, Err: f.err}
}

type failingJobs struct{}

func (failingJobs) Enqueue(context.Context, string, map[string]any, time.Duration, int) (*types.Task, error) {
	return nil, errors.New("queue down")
}
func (failingJobs) Depth(context.Context) (int64, error) { return 0, nil }

func newIngestion(t *testing.T) (IngestionService, repos.CollectionRepo, *queue.MemoryQueue, *ingestCounts) {
	t.Helper()
	repo, err := repos.NewMemoryCollectionProvider(logger.Nop()).Collection("Shipments")
	require.NoError(t, err)
	q := queue.NewMemoryQueue(0)
	t.Cleanup(func() { _ = q.Close() })
	rec := &ingestCounts{}
	svc := NewIngestionService(logger.Nop(), repo, NewJobService(logger.Nop(), q), rec, IngestionConfig{
		WebhookDelay:       8 * time.Second,
		WebhookMaxAttempts: 3,
	})
	return svc, repo, q, rec
}

func TestIngestFileStoresRowsAndSchedulesWebhook(t *testing.T) {
	svc, repo, q, rec := newIngestion(t)
	ctx := context.Background()
	csv := "DocketNo,EDD,Status\nA1,5/1/23,ok\n,,\nA2,,late\n"

	res, err := svc.IngestFile(ctx, "batch.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "batch.csv", res.FileName)
	assert.True(t, res.WebhookScheduled)
	require.Len(t, res.Sample, 2)
	assert.Equal(t, "05/01/2023", res.Sample[0]["EDD"])
	_, hasEDD := res.Sample[1]["EDD"]
	assert.False(t, hasEDD)

	n, err := repo.Count(ctx, records.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 2, rec.ingested)
	assert.Equal(t, []string{"succeeded"}, rec.outcomes)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)

	// the task is not due yet
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = q.Dequeue(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIngestWebhookTaskCarriesFileName(t *testing.T) {
	repo, err := repos.NewMemoryCollectionProvider(logger.Nop()).Collection("Shipments")
	require.NoError(t, err)
	q := queue.NewMemoryQueue(0)
	defer q.Close()
	svc := NewIngestionService(logger.Nop(), repo, NewJobService(logger.Nop(), q), nil, IngestionConfig{WebhookMaxAttempts: 3})

	before := time.Now()
	_, err = svc.Ingest(context.Background(), "shipments.xlsx", []types.Row{{{Key: "DocketNo", Value: "A"}}})
	require.NoError(t, err)

	task, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskWebhookNotify, task.Type)
	assert.Equal(t, 3, task.MaxAttempts)
	assert.False(t, task.RunAt.Before(before))
	var payload jobs.WebhookPayload
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, "shipments.xlsx", payload.FileName)
}

func TestIngestEmptyFile(t *testing.T) {
	svc, _, _, _ := newIngestion(t)
	res, err := svc.IngestFile(context.Background(), "empty.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Sample)
}

func TestIngestSampleIsCapped(t *testing.T) {
	svc, _, _, _ := newIngestion(t)
	rows := make([]types.Row, 0, 9)
	for i := 0; i < 9; i++ {
		rows = append(rows, types.Row{{Key: "n", Value: int64(i)}})
	}
	res, err := svc.Ingest(context.Background(), "x.csv", rows)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Count)
	assert.Len(t, res.Sample, 5)
}

func TestIngestInsertFailureSurfacesPartialCount(t *testing.T) {
	base, err := repos.NewMemoryCollectionProvider(logger.Nop()).Collection("Shipments")
	require.NoError(t, err)
	rec := &ingestCounts{}
	svc := NewIngestionService(logger.Nop(), failingRepo{CollectionRepo: base, err: errors.New("E11000 duplicate key")}, failingJobs{}, rec, IngestionConfig{})

	res, err := svc.Ingest(context.Background(), "dup.csv", []types.Row{{}, {}, {}})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "stored 2 of 3 records")
	assert.Equal(t, []string{"failed"}, rec.outcomes)
}

func TestIngestEnqueueFailureStillSucceeds(t *testing.T) {
	repo, err := repos.NewMemoryCollectionProvider(logger.Nop()).Collection("Shipments")
	require.NoError(t, err)
	svc := NewIngestionService(logger.Nop(), repo, failingJobs{}, nil, IngestionConfig{})

	res, err := svc.Ingest(context.Background(), "a.csv", []types.Row{{{Key: "a", Value: "1"}}})
	require.NoError(t, err)
	assert.False(t, res.WebhookScheduled)
	assert.Equal(t, 1, res.Count)
}

func TestIngestFileRejectsBrokenWorkbook(t *testing.T) {
	svc, _, _, rec := newIngestion(t)
	_, err := svc.IngestFile(context.Background(), "bad.xlsx", []byte("PK\x03\x04garbage"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err, 0))
	assert.Equal(t, []string{"invalid"}, rec.outcomes)
}

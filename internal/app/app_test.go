package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

func memoryConfig(t *testing.T, webhookURL string) Config {
	t.Helper()
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("SHIPMENT_WEBHOOK_URL", webhookURL)
	t.Setenv("WEBHOOK_DELAY", "10ms")
	t.Setenv("WORKER_CONCURRENCY", "1")
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	return cfg
}

func TestAppServesAPIOnMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var hits atomic.Int32
	var gotFile, gotRequestID atomic.Value
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotFile.Store(body["fileName"])
		gotRequestID.Store(r.Header.Get("X-Request-Id"))
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	a, err := NewWithConfig(context.Background(), logger.Nop(), memoryConfig(t, hook.URL))
	require.NoError(t, err)
	defer a.Close()
	a.Start()

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "week1.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("DocketNo,EDD\nD1,01/02/2025\n"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-Id", "upload-week1")
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "upload-week1", rec.Header().Get("X-Request-Id"))

	n, err := a.Repos.Shipments.Count(context.Background(), records.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	scrape := func() string {
		rec := httptest.NewRecorder()
		a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Body.String()
	}
	require.Eventually(t, func() bool {
		return strings.Contains(scrape(), `webhook_deliveries_total{outcome="delivered"} 1`)
	}, 5*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, "week1.csv", gotFile.Load())
	// the webhook is correlated with the upload that scheduled it
	assert.Equal(t, "upload-week1", gotRequestID.Load())
	assert.Contains(t, scrape(), "shipments_ingested_total 1")
}

func TestAppRunStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := memoryConfig(t, "http://127.0.0.1:1/unused")
	cfg.Port = "0"
	a, err := NewWithConfig(context.Background(), logger.Nop(), cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

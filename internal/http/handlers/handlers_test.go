package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/shipdash-backend/internal/data/repos"
	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/jobs/queue"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
	"github.com/yungbote/shipdash-backend/internal/services"
)

type fixture struct {
	engine   *gin.Engine
	provider *repos.MemoryCollectionProvider
	queue    *queue.MemoryQueue
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	provider := repos.NewMemoryCollectionProvider(log)
	q := queue.NewMemoryQueue(16)
	t.Cleanup(func() { _ = q.Close() })

	shipments, err := provider.Collection("Shipments")
	require.NoError(t, err)
	delayed, err := provider.Collection("ShipmentDelayed")
	require.NoError(t, err)
	emails, err := provider.Collection("Emails")
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ingest := services.NewIngestionService(log, shipments, services.NewJobService(log, q), nil,
		services.IngestionConfig{WebhookDelay: 8 * time.Second, WebhookMaxAttempts: 3})
	emailSvc := services.NewRecordService(log, emails, services.RecordServiceConfig{
		SearchFields: services.EmailSearchFields,
		Coercer:      services.Coercer{Mode: services.CoercionStrict, ValidateEmail: true},
	})

	upload := NewUploadHandler(log, ingest, maxUpload)
	ship := NewShipmentHandler(services.NewShipmentQueryService(log, delayed, now))
	email := NewEmailHandler(log, emailSvc)
	data := NewDataHandler(log, services.NewCollectionService(log, provider, services.Coercer{Mode: services.CoercionStrict}))

	r := gin.New()
	r.GET("/healthcheck", NewHealthHandler(provider).HealthCheck)
	r.POST("/api/upload-csv", upload.UploadShipments)
	r.GET("/api/upload-template", NewTemplateHandler().UploadTemplate)
	r.GET("/api/shipments", ship.ListShipments)
	r.GET("/api/shipments/stats", ship.ShipmentStats)
	r.GET("/api/emails", email.ListEmails)
	r.GET("/api/emails/:id", email.GetEmail)
	r.POST("/api/emails", email.CreateEmail)
	r.PATCH("/api/emails", email.UpdateEmail)
	r.DELETE("/api/emails", email.DeleteEmail)
	r.GET("/api/data", data.ListData)
	r.GET("/api/data/:id", data.GetData)
	r.POST("/api/data", data.CreateData)
	r.PATCH("/api/data", data.UpdateData)
	r.DELETE("/api/data", data.DeleteData)

	return &fixture{engine: r, provider: provider, queue: q}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, field, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		w, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(t, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("no reachable servers") }

func TestHealthCheckStoreDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthcheck", NewHealthHandler(downStore{}).HealthCheck)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no reachable servers")
}

func TestUploadCSV(t *testing.T) {
	f := newFixture(t, 0)
	csv := "DocketNo,EDD,Tenant\nD1,5/3/24,acme\nD2,,acme\n,,\n"
	rec := f.upload(t, "file", "batch.csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "Uploaded 2 records successfully", out["message"])
	assert.EqualValues(t, 2, out["count"])
	assert.Equal(t, "batch.csv", out["fileName"])
	assert.Equal(t, true, out["webhookScheduled"])
	sample, ok := out["sample"].([]any)
	require.True(t, ok)
	require.Len(t, sample, 2)
	assert.Equal(t, "05/03/2024", sample[0].(map[string]any)["EDD"])

	repo, err := f.provider.Collection("Shipments")
	require.NoError(t, err)
	n, err := repo.Count(context.Background(), records.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	depth, err := f.queue.Depth(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, depth)
}

func TestUploadMissingFile(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.upload(t, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])
}

func TestUploadTooLarge(t *testing.T) {
	f := newFixture(t, 256)
	rec := f.upload(t, "file", "big.csv", bytes.Repeat([]byte("a,b\n"), 512))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadTemplate(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(t, http.MethodGet, "/api/upload-template", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tenant,DocketNo,DeliveryPartner,EDD,EcomStatus\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Upload_Format.csv")
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
}

func seedDelayed(t *testing.T, f *fixture, n int) {
	t.Helper()
	docs := make([]records.Record, 0, n)
	sev := []string{"low", "medium", "high"}
	for i := 0; i < n; i++ {
		docs = append(docs, records.Record{
			"DocketNo":  fmt.Sprintf("D%03d", i),
			"severity":  sev[i%3],
			"delay":     i % 4,
			"EDD":       "01/01/2025",
			"CreatedAt": time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC),
			"threadId":  "t",
		})
	}
	require.NoError(t, f.provider.Seed("ShipmentDelayed", docs...))
}

func TestListShipmentsPagination(t *testing.T) {
	f := newFixture(t, 0)
	seedDelayed(t, f, 125)

	rec := f.do(t, http.MethodGet, "/api/shipments?page=3&limit=50", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.EqualValues(t, 3, out["page"])
	assert.EqualValues(t, 3, out["totalPages"])
	assert.EqualValues(t, 125, out["total"])
	data := out["data"].([]any)
	require.Len(t, data, 25)
	first := data[0].(map[string]any)
	assert.NotContains(t, first, "_id")
	assert.NotContains(t, first, "threadId")

	rec = f.do(t, http.MethodGet, "/api/shipments?page=9&limit=50", nil)
	out = decode(t, rec)
	assert.Empty(t, out["data"])
	assert.EqualValues(t, 9, out["page"])
}

func TestListShipmentsDefaultsAndFilters(t *testing.T) {
	f := newFixture(t, 0)
	seedDelayed(t, f, 125)

	out := decode(t, f.do(t, http.MethodGet, "/api/shipments?limit=abc", nil))
	assert.Len(t, out["data"], 100)
	assert.EqualValues(t, 2, out["totalPages"])

	out = decode(t, f.do(t, http.MethodGet, "/api/shipments?severity=HIGH&search=d00", nil))
	assert.EqualValues(t, 3, out["total"])

	rec := f.do(t, http.MethodGet, "/api/shipments?severity=urgent", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShipmentStats(t *testing.T) {
	f := newFixture(t, 0)
	seedDelayed(t, f, 6)

	rec := f.do(t, http.MethodGet, "/api/shipments/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.EqualValues(t, 6, out["total"])
	counts := out["severityCounts"].(map[string]any)
	assert.EqualValues(t, 2, counts["low"])
	assert.EqualValues(t, 2, counts["medium"])
	assert.EqualValues(t, 2, counts["high"])
	// delays 0,1,2,3,0,1
	assert.InDelta(t, 1.17, out["avgDelay"], 0.001)
	assert.EqualValues(t, 6, out["delayedShipments"])
}

func TestShipmentSeverityIgnoresStoredCase(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.provider.Seed("ShipmentDelayed",
		records.Record{"DocketNo": "D1", "severity": "HIGH", "delay": "4"},
		records.Record{"DocketNo": "D2", "severity": "High", "delay": "2"},
		records.Record{"DocketNo": "D3", "severity": "low", "delay": "1"},
	))

	out := decode(t, f.do(t, http.MethodGet, "/api/shipments/stats?severity=high", nil))
	assert.EqualValues(t, 2, out["total"])
	assert.EqualValues(t, 2, out["severityCounts"].(map[string]any)["high"])
	assert.InDelta(t, 3.0, out["avgDelay"], 0.001)

	out = decode(t, f.do(t, http.MethodGet, "/api/shipments?severity=high", nil))
	assert.EqualValues(t, 2, out["total"])
	assert.Len(t, out["data"], 2)
}

func TestListPageFarBeyondData(t *testing.T) {
	f := newFixture(t, 0)
	seedDelayed(t, f, 2)

	rec := f.do(t, http.MethodGet, "/api/shipments?page=922337203685477581&limit=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":922337203685477581`)
	out := decode(t, rec)
	assert.Empty(t, out["data"])
	assert.NotNil(t, out["data"])
	assert.EqualValues(t, 2, out["total"])
	assert.EqualValues(t, 1, out["totalPages"])

	rec = f.do(t, http.MethodGet, "/api/emails?page=922337203685477581&limit=50", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["data"])
}

func TestEmailCRUDRoundTrip(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(t, http.MethodPost, "/api/emails", map[string]any{
		"name": "Ops", "email": "ops@example.com", "DeliveryPartner": "BlueDart", "priority": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "Email document added", out["message"])
	doc := out["doc"].(map[string]any)
	id, _ := doc["_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "2", doc["priority"])

	rec = f.do(t, http.MethodPatch, "/api/emails", map[string]any{
		"id": id, "updatedFields": map[string]any{"DeliveryPartner": "Delhivery"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Email document updated", decode(t, rec)["message"])

	got := decode(t, f.do(t, http.MethodGet, "/api/emails/"+id, nil))
	assert.Equal(t, "Delhivery", got["DeliveryPartner"])
	assert.Equal(t, "Ops", got["name"])

	list := decode(t, f.do(t, http.MethodGet, "/api/emails?search=delhi", nil))
	assert.EqualValues(t, 1, list["total"])

	rec = f.do(t, http.MethodDelete, "/api/emails?id="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email document deleted", decode(t, rec)["message"])

	rec = f.do(t, http.MethodGet, "/api/emails/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmailClientErrors(t *testing.T) {
	f := newFixture(t, 0)

	cases := []struct {
		name   string
		method string
		target string
		body   any
		status int
		msg    string
	}{
		{"delete without id", http.MethodDelete, "/api/emails", nil, http.StatusBadRequest, "Missing id"},
		{"delete bad id", http.MethodDelete, "/api/emails?id=zzz", nil, http.StatusBadRequest, "invalid id"},
		{"get bad id", http.MethodGet, "/api/emails/zzz", nil, http.StatusBadRequest, "invalid id"},
		{"patch without fields", http.MethodPatch, "/api/emails", map[string]any{"id": "abc"}, http.StatusBadRequest, "Missing id or updatedFields"},
		{"patch without id", http.MethodPatch, "/api/emails", map[string]any{"updatedFields": map[string]any{"a": "b"}}, http.StatusBadRequest, "Missing id or updatedFields"},
		{"create not an object", http.MethodPost, "/api/emails", "[1,2]", http.StatusBadRequest, "request body must be a JSON object"},
		{"create bad email", http.MethodPost, "/api/emails", map[string]any{"email": "not-an-address"}, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.msg != "" {
				assert.Equal(t, tc.msg, decode(t, rec)["error"])
			}
		})
	}
}

func TestDataCollectionCRUD(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(t, http.MethodGet, "/api/data", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing collection name", decode(t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/api/data?collection=Partners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = f.do(t, http.MethodPost, "/api/data?collection=Partners", map[string]any{"name": "BlueDart", "active": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode(t, rec)["doc"].(map[string]any)
	id := doc["_id"].(string)
	assert.Equal(t, "true", doc["active"])

	rec = f.do(t, http.MethodPatch, "/api/data?collection=Partners", map[string]any{
		"id": id, "updatedFields": map[string]any{"active": false},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode(t, f.do(t, http.MethodGet, "/api/data/"+id+"?collection=Partners", nil))
	assert.Equal(t, "false", got["active"])

	var all []map[string]any
	rec = f.do(t, http.MethodGet, "/api/data?collection=Partners", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 1)

	rec = f.do(t, http.MethodDelete, "/api/data?collection=Partners&id="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Document deleted", decode(t, rec)["message"])

	rec = f.do(t, http.MethodGet, "/api/data?collection=system.users", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]int{"": 7, "abc": 7, "0": 7, "-2": 7, "3": 3, " 12 ": 12}
	for raw, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?n="+strings.ReplaceAll(raw, " ", "%20"), nil)
		assert.Equal(t, want, queryInt(c, "n", 7), "raw %q", raw)
	}
}

package webhook_notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/shipdash-backend/internal/jobs/runtime"
	"github.com/yungbote/shipdash-backend/internal/pkg/httpx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Task == nil {
		return nil
	}

	var payload jobs.WebhookPayload
	if err := jc.DecodePayload(&payload); err != nil {
		jc.Fail("decode", fmt.Errorf("decode webhook payload: %w", err), false)
		p.record(OutcomeError)
		return nil
	}

	status, err := p.deliver(jc, payload.FileName)
	switch {
	case err == nil:
		jc.Log.Info("Webhook delivered", "file_name", payload.FileName, "status", status)
		p.record(OutcomeDelivered)
		jc.Succeed("delivered", map[string]any{"status": status})
	case status != 0:
		jc.Log.Warn("Webhook rejected", "file_name", payload.FileName, "status", status)
		p.record(OutcomeRejected)
		jc.Fail("deliver", err, httpx.IsRetryableError(err))
	default:
		jc.Log.Warn("Webhook delivery failed", "file_name", payload.FileName, "error", err)
		p.record(OutcomeError)
		jc.Fail("deliver", err, httpx.IsRetryableError(err))
	}
	return nil
}

// deliver POSTs {fileName}. A non-zero status with an error means the endpoint
// answered outside 2xx.
func (p *Pipeline) deliver(jc *jobrt.Context, fileName string) (int, error) {
	body, err := json.Marshal(map[string]string{"fileName": fileName})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(jc.Ctx, http.MethodPost, strings.TrimSpace(p.url), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id, ok := jc.PayloadString("request_id"); ok {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &httpx.StatusError{URL: p.url, Status: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

func (p *Pipeline) record(outcome string) {
	if p.recorder != nil {
		p.recorder.WebhookDelivery(outcome)
	}
}

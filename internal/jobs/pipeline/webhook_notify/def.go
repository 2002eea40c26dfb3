package webhook_notify

import (
	"net/http"
	"time"

	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// Recorder counts delivery attempts by outcome.
type Recorder interface {
	WebhookDelivery(outcome string)
}

type Pipeline struct {
	log      *logger.Logger
	client   *http.Client
	url      string
	recorder Recorder
}

func New(baseLog *logger.Logger, url string, timeout time.Duration, recorder Recorder) *Pipeline {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Pipeline{
		log:      baseLog.With("job", jobs.TaskWebhookNotify),
		client:   &http.Client{Timeout: timeout},
		url:      url,
		recorder: recorder,
	}
}

func (p *Pipeline) Type() string { return jobs.TaskWebhookNotify }

package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Task is a unit of deferred work. It is not run before RunAt.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	RunAt       time.Time       `json:"run_at"`
	CreatedAt   time.Time       `json:"created_at"`
	Status      TaskStatus      `json:"status"`
	Stage       string          `json:"stage,omitempty"`
	Error       string          `json:"error,omitempty"`
	LastErrorAt *time.Time      `json:"last_error_at,omitempty"`
}

// NewTask builds a queued task with a JSON-encoded payload.
func NewTask(taskType string, payload any, runAt time.Time, maxAttempts int) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Task{
		ID:          uuid.New(),
		Type:        taskType,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		RunAt:       runAt,
		CreatedAt:   time.Now().UTC(),
		Status:      TaskQueued,
	}, nil
}

// Exhausted reports whether the attempt just made was the last one allowed.
func (t *Task) Exhausted() bool {
	return t.Attempt >= t.MaxAttempts
}

// TaskWebhookNotify tells the downstream classifier that a file was ingested.
const TaskWebhookNotify = "webhook.notify"

// WebhookPayload is the body POSTed to the shipment webhook. The trace fields
// are carried for log correlation and are not sent.
type WebhookPayload struct {
	FileName  string `json:"fileName"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

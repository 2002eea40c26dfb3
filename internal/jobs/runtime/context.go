package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/shipdash-backend/internal/domain/jobs"
	"github.com/yungbote/shipdash-backend/internal/pkg/ctxutil"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

/*
Context is the execution handle for one attempt of a task.
Handlers read inputs through Payload/PayloadString and report the outcome
through Fail/Succeed. The worker inspects the outcome afterwards to decide
whether the task is retried.
*/
type Context struct {
	Ctx     context.Context
	Task    *jobs.Task
	Log     *logger.Logger
	payload map[string]any

	retryable bool
	err       error
	result    any
}

func NewContext(ctx context.Context, task *jobs.Task, log *logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	c := &Context{Ctx: ctxutil.Default(ctx), Task: task, Log: log}
	if task != nil {
		c.Log = log.With("task_id", task.ID.String(), "task_type", task.Type, "attempt", task.Attempt)
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

/*
decodePayload parses Task.Payload into a map.
	- nil task or empty payload: empty map
	- malformed JSON: empty map, error returned so callers can decide
*/
func (c *Context) decodePayload() error {
	if c.Task == nil || len(c.Task.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Task.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	payload := c.Payload()
	traceID := payloadString(payload, "trace_id")
	reqID := payloadString(payload, "request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// DecodePayload unmarshals the raw payload into dst.
func (c *Context) DecodePayload(dst any) error {
	if c.Task == nil || len(c.Task.Payload) == 0 {
		return fmt.Errorf("empty task payload")
	}
	return json.Unmarshal(c.Task.Payload, dst)
}

func (c *Context) PayloadString(key string) (string, bool) {
	s := payloadString(c.Payload(), key)
	return s, s != ""
}

func payloadString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Fail records a failed attempt. retryable lets the worker schedule another
// attempt when any remain.
func (c *Context) Fail(stage string, err error, retryable bool) {
	if c == nil {
		return
	}
	if err == nil {
		err = fmt.Errorf("%s failed", stage)
	}
	now := time.Now().UTC()
	c.err = err
	c.retryable = retryable
	if c.Task != nil {
		c.Task.Status = jobs.TaskFailed
		c.Task.Stage = stage
		c.Task.Error = err.Error()
		c.Task.LastErrorAt = &now
	}
}

func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	c.err = nil
	c.retryable = false
	c.result = result
	if c.Task != nil {
		c.Task.Status = jobs.TaskSucceeded
		c.Task.Stage = finalStage
		c.Task.Error = ""
	}
}

// Err is the failure recorded by Fail, if any.
func (c *Context) Err() error { return c.err }

func (c *Context) Retryable() bool { return c.err != nil && c.retryable }

func (c *Context) Result() any { return c.result }

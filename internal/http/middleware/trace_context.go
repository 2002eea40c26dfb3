package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/shipdash-backend/internal/pkg/ctxutil"
)

// Correlation headers. Both are echoed on every response; the request id also
// travels in the payload of tasks enqueued by the request, so the delivery
// webhook carries the id of the upload that scheduled it.
const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"

	maxCorrelationIDLen = 128
)

// RequestContext stores ctxutil.TraceData on the request context. A caller's
// request id is kept when it is a safe token, otherwise a fresh one is minted.
// The trace id comes from the active span when tracing is on.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := correlationID(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}

		var traceID string
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else if traceID = correlationID(c.GetHeader(HeaderTraceID)); traceID == "" {
			traceID = strings.ReplaceAll(uuid.NewString(), "-", "")
		}

		td := &ctxutil.TraceData{TraceID: traceID, RequestID: reqID}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Writer.Header().Set(HeaderTraceID, traceID)
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Next()
	}
}

// correlationID returns raw trimmed, or "" when it is empty, too long or holds
// anything besides letters, digits and . _ : -
// The id is copied into log fields and outbound webhook headers.
func correlationID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxCorrelationIDLen {
		return ""
	}
	for i := 0; i < len(id); i++ {
		switch ch := id[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '.', ch == '_', ch == ':', ch == '-':
		default:
			return ""
		}
	}
	return id
}

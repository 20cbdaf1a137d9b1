package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	progressKey  contextKey = "progress_func"
)

// NewRequestID returns a random 8-byte hex identifier for log correlation.
func NewRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request ID from the context, or "" if absent.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ProgressFunc reports intermediate progress back to the client.
type ProgressFunc func(progress float64, message string)

// WithProgress attaches a progress reporter to the context. It is set only
// when the client sent a progressToken with the tool call.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey, fn)
}

// ReportProgress invokes the context's progress reporter if one is attached.
func ReportProgress(ctx context.Context, progress float64, message string) {
	if fn, ok := ctx.Value(progressKey).(ProgressFunc); ok && fn != nil {
		fn(progress, message)
	}
}

// Package trace tags every log record of one command run with a run id.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RunIDKey is the context key for the run ID
	RunIDKey ContextKey = "run_id"

	// FieldRunID is the log attribute carrying the run ID.
	FieldRunID = "run_id"
)

// NewRunID creates a unique run ID for tracing
func NewRunID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("run_%d", time.Now().UnixNano())
	}
	return "run_" + hex.EncodeToString(bytes)
}

// WithRunID returns a context carrying id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

// RunID extracts the run ID from context
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// Handler adds the run ID found in the record's context to every record.
type Handler struct {
	next slog.Handler
}

func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id := RunID(ctx); id != "" {
		r = r.Clone()
		r.AddAttrs(slog.String(FieldRunID, id))
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

// Span logs the start of op and returns a function that logs its
// completion with duration, at Error level when *err is set.
func Span(ctx context.Context, logger *slog.Logger, op string, err *error) func() {
	start := time.Now()
	logger.DebugContext(ctx, "Command started", "command", op)
	return func() {
		duration := time.Since(start)
		level := slog.LevelInfo
		if err != nil && *err != nil {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "Command completed",
			"command", op,
			"duration_ms", duration.Milliseconds(),
			"duration_human", duration.String(),
			"success", err == nil || *err == nil)
	}
}

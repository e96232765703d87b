package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

type contextKey string

const (
	// RequestIDKey carries the id of the inbound HTTP request.
	RequestIDKey contextKey = "request_id"
	// SnapshotIDKey carries the id of one aggregation pass.
	SnapshotIDKey contextKey = "snapshot_id"
	// ComponentKey names the background component doing the work.
	ComponentKey contextKey = "component"
)

// contextFields are copied onto every record whose context carries them.
var contextFields = []contextKey{RequestIDKey, SnapshotIDKey, ComponentKey}

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, text
	Output      io.Writer
	AddSource   bool
	ServiceName string
	Environment string
}

// NewLogger builds a slog logger that stamps service metadata and the
// request, snapshot and component ids found in the record's context.
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(output, opts)
	} else {
		base = slog.NewJSONHandler(output, opts)
	}

	var static []slog.Attr
	if cfg.ServiceName != "" {
		static = append(static, slog.String("service", cfg.ServiceName))
	}
	if cfg.Environment != "" {
		static = append(static, slog.String("environment", cfg.Environment))
	}
	if len(static) > 0 {
		base = base.WithAttrs(static)
	}

	return slog.New(contextHandler{Handler: base})
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// contextHandler lifts well-known context values into record attributes.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(contextAttrs(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	for _, key := range contextFields {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithSnapshotID tags the context with the id of one aggregation pass
func WithSnapshotID(ctx context.Context, snapshotID string) context.Context {
	return context.WithValue(ctx, SnapshotIDKey, snapshotID)
}

// WithComponent tags the context with a background component name
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ComponentKey, component)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetSnapshotID retrieves the snapshot ID from context
func GetSnapshotID(ctx context.Context) string {
	return stringValue(ctx, SnapshotIDKey)
}

// LogPanic records a recovered panic with the goroutine's stack.
func LogPanic(ctx context.Context, logger *slog.Logger, panicValue any, attrs ...any) {
	attrs = append(attrs, "panic", panicValue, "stack_trace", string(debug.Stack()))
	logger.ErrorContext(ctx, "panic recovered", attrs...)
}

// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// GlobalLogger is the logger used by repository and service instrumentation.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLogger replaces GlobalLogger, typically with the request-aware middleware logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = l
	}
}

type logContextKey string

// CorrelationID is the context key carrying a correlation ID across layers.
const CorrelationID logContextKey = "correlation_id"

// LoggingConfig toggles automated logging.
type LoggingConfig struct {
	EnableRepoLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{EnableRepoLogging: true}

// NewCorrelationID returns a random correlation ID.
func NewCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// RepoLogger logs repository mutations for one table.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) log(ctx context.Context, level slog.Level, msg, op string, attrs []slog.Attr) {
	if !Config.EnableRepoLogging {
		return
	}
	base := []slog.Attr{
		slog.String("table", l.table),
		slog.String("operation", op),
	}
	if cid := ExtractCorrelationID(ctx); cid != "" {
		base = append(base, slog.String("correlation_id", cid))
	}
	GlobalLogger.LogAttrs(ctx, level, msg, append(base, attrs...)...)
}

// LogCreate logs an insert or upsert.
func (l *RepoLogger) LogCreate(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, "repository create", "create", attrs)
}

// LogUpdate logs an in-place update.
func (l *RepoLogger) LogUpdate(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, "repository update", "update", attrs)
}

// LogDelete logs a delete with the number of rows removed.
func (l *RepoLogger) LogDelete(ctx context.Context, rows int64, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, "repository delete", "delete", append(attrs, slog.Int64("rows", rows)))
}

// LogError logs a storage failure.
func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	l.log(ctx, slog.LevelError, "repository error", op, []slog.Attr{slog.String("error", err.Error())})
}

package driver

import (
	"context"
	"io"
	"log/slog"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// QueryLogger logs every round trip at debug level and failures at warn.
type QueryLogger struct {
	log *slog.Logger
}

// NewQueryLogger returns a QueryLogger writing to l. A nil l discards output.
func NewQueryLogger(l *slog.Logger) *QueryLogger {
	if l == nil {
		l = discardLogger()
	}
	return &QueryLogger{log: l}
}

// ObserveQuery implements gomodel.QueryObserver.
func (q *QueryLogger) ObserveQuery(ctx context.Context, ev gomodel.QueryEvent) {
	attrs := []slog.Attr{
		slog.String("operation", ev.Operation),
		slog.String("table", ev.Table),
		slog.String("sql", ev.SQL),
		slog.Int("args", len(ev.Args)),
		slog.Duration("duration", ev.Duration),
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
		q.log.LogAttrs(ctx, slog.LevelWarn, "query failed", attrs...)
		return
	}
	q.log.LogAttrs(ctx, slog.LevelDebug, "query", attrs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

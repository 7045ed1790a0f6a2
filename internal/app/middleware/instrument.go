package middleware

import (
	"context"
	"log/slog"
	"time"

	"staycal/internal/app/commands"
	"staycal/internal/app/queries"
)

// Recorder receives one observation per bus message.
type Recorder interface {
	ObserveMessage(kind, key, outcome string, elapsed time.Duration)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Instrument logs failed commands and reports every command to rec.
func Instrument(logger *slog.Logger, rec Recorder) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			observe(ctx, logger, rec, "command", cmd.Key(), start, err)
			return res, err
		})
	}
}

func QueryInstrument(logger *slog.Logger, rec Recorder) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			observe(ctx, logger, rec, "query", q.Key(), start, err)
			return res, err
		})
	}
}

func observe(ctx context.Context, logger *slog.Logger, rec Recorder, kind, key string, start time.Time, err error) {
	elapsed := time.Since(start)
	if rec != nil {
		rec.ObserveMessage(kind, key, outcome(err), elapsed)
	}
	if logger == nil {
		return
	}
	if err != nil {
		logger.WarnContext(ctx, kind+" failed", "key", key, "duration", elapsed, "error", err)
		return
	}
	logger.DebugContext(ctx, kind+" handled", "key", key, "duration", elapsed)
}

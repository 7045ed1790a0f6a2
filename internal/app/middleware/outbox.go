package middleware

import (
	"context"
	"log/slog"

	"staycal/internal/app/commands"
	"staycal/internal/app/outbox"
)

// OutboxFlush flushes box after a successful command. Place it outside
// Transaction so records are only relayed after commit. A failed flush
// leaves the records pending and does not fail the committed command.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.WarnContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}

package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"staycal/internal/app/commands"
	"staycal/internal/app/queries"
)

const tracerName = "staycal/app"

func Tracing() CommandMiddleware {
	tracer := otel.Tracer(tracerName)
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx, span := tracer.Start(ctx, cmd.Key(), trace.WithAttributes(attribute.String("bus.kind", "command")))
			defer span.End()
			res, err := next.Dispatch(ctx, cmd)
			markSpan(span, err)
			return res, err
		})
	}
}

func QueryTracing() QueryMiddleware {
	tracer := otel.Tracer(tracerName)
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			ctx, span := tracer.Start(ctx, q.Key(), trace.WithAttributes(attribute.String("bus.kind", "query")))
			defer span.End()
			res, err := next.Ask(ctx, q)
			markSpan(span, err)
			return res, err
		})
	}
}

func markSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

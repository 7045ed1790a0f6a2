package principal

import (
	"context"

	domainlistings "staycal/internal/domain/listings"
)

type ctxKey struct{}

// WithHost marks ctx as authenticated for host.
func WithHost(ctx context.Context, host domainlistings.HostID) context.Context {
	return context.WithValue(ctx, ctxKey{}, host)
}

func HostFrom(ctx context.Context) (domainlistings.HostID, bool) {
	host, ok := ctx.Value(ctxKey{}).(domainlistings.HostID)
	return host, ok && host != ""
}

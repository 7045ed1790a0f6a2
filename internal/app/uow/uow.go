package uow

import (
	"context"

	"staycal/internal/app/outbox"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

// UnitOfWork groups the repositories touched by one command or query.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Calendar() domainavailability.Store
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units whose repositories read the
// transaction handle from the context (mongo sessions, pgx transactions).
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "staycal/internal/app/outbox"
	"staycal/internal/app/uow"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory opens one pgx transaction per unit. Repositories pick it up from
// the context injected by the Transaction middleware.
type Factory struct {
	Pool *pgxpool.Pool

	ListingsRepo  domainlistings.Repository
	CalendarStore domainavailability.Store
	Outbox        appoutbox.Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, listings: f.ListingsRepo, calendar: f.CalendarStore, outbox: f.Outbox}, nil
}

type Unit struct {
	tx pgx.Tx

	listings domainlistings.Repository
	calendar domainavailability.Store
	outbox   appoutbox.Outbox
}

func (u *Unit) Listings() domainlistings.Repository { return u.listings }

func (u *Unit) Calendar() domainavailability.Store { return u.calendar }

func (u *Unit) Outbox() appoutbox.Outbox { return u.outbox }

func (u *Unit) Commit(ctx context.Context) error { return u.tx.Commit(ctx) }

func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return withTx(ctx, u.tx)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)

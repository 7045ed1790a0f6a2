package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "staycal/internal/app/outbox"
	"staycal/internal/app/uow"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

// Factory wires Mongo sessions into the generic UnitOfWork interface. Write
// units run inside a multi-document transaction, which needs a replica set.
type Factory struct {
	DB *mongo.Database

	ListingsRepo  domainlistings.Repository
	CalendarStore domainavailability.Store
	Outbox        appoutbox.Outbox
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	unit := &Unit{
		session:  session,
		listings: f.ListingsRepo,
		calendar: f.CalendarStore,
		outbox:   f.Outbox,
	}
	if opts.ReadOnly {
		return unit, nil
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	unit.inTxn = true
	return unit, nil
}

type Unit struct {
	session mongo.Session
	inTxn   bool

	listings domainlistings.Repository
	calendar domainavailability.Store
	outbox   appoutbox.Outbox
}

func (u *Unit) Listings() domainlistings.Repository { return u.listings }

func (u *Unit) Calendar() domainavailability.Store { return u.calendar }

func (u *Unit) Outbox() appoutbox.Outbox { return u.outbox }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext makes the session visible to repositories using ctx.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)

package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "staycal/internal/app/outbox"
	"staycal/internal/app/uow"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo  domainlistings.Repository
	CalendarStore domainavailability.Store
	Outbox        *Outbox
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin opens a unit without isolation. Outbox records staged in the unit
// reach the shared outbox only on Commit.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.CalendarStore == nil {
		return nil, ErrFactoryMisconfigured
	}
	unit := &Unit{listings: f.ListingsRepo, calendar: f.CalendarStore}
	if f.Outbox != nil && !opts.ReadOnly {
		unit.outbox = &stagedOutbox{parent: f.Outbox}
	}
	return unit, nil
}

type Unit struct {
	listings domainlistings.Repository
	calendar domainavailability.Store
	outbox   *stagedOutbox
}

func (u *Unit) Listings() domainlistings.Repository { return u.listings }

func (u *Unit) Calendar() domainavailability.Store { return u.calendar }

func (u *Unit) Outbox() appoutbox.Outbox {
	if u.outbox == nil {
		return nil
	}
	return u.outbox
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.outbox != nil {
		u.outbox.commit()
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.outbox != nil {
		u.outbox.discard()
	}
	return nil
}

type stagedOutbox struct {
	mu      sync.Mutex
	parent  *Outbox
	pending []appoutbox.EventRecord
}

func (s *stagedOutbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, record)
	return nil
}

func (s *stagedOutbox) Flush(ctx context.Context) error {
	return s.parent.Flush(ctx)
}

func (s *stagedOutbox) commit() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, rec := range pending {
		_ = s.parent.Add(context.Background(), rec)
	}
}

func (s *stagedOutbox) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

var (
	_ uow.UoWFactory   = Factory{}
	_ uow.UnitOfWork   = (*Unit)(nil)
	_ appoutbox.Outbox = (*stagedOutbox)(nil)
)

package availability

import (
	"context"
	"time"

	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

const CheckAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	ListingID string    `validate:"required"`
	CheckIn   time.Time `validate:"required"`
	CheckOut  time.Time `validate:"required"`
}

func (q CheckAvailabilityQuery) Key() string { return CheckAvailabilityKey }

func (q CheckAvailabilityQuery) DateSpan() (time.Time, time.Time) { return q.CheckIn, q.CheckOut }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityCheck, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	res, err := domainavailability.NewEngine(unit.Calendar()).CheckAvailability(ctx, listing, q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	return dto.MapAvailabilityCheck(q.ListingID, q.CheckIn, q.CheckOut, res), nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityCheck] = (*CheckAvailabilityHandler)(nil)

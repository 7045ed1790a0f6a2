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
	"staycal/internal/domain/shared/daterange"
)

const GetCalendarKey = "availability.calendar"

type GetCalendarQuery struct {
	ListingID string    `validate:"required"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required"`
}

func (q GetCalendarQuery) Key() string { return GetCalendarKey }

func (q GetCalendarQuery) DateSpan() (time.Time, time.Time) { return q.Start, q.End }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Calendar{}, err
	}
	days, err := domainavailability.NewEngine(unit.Calendar()).GetCalendar(ctx, listing, q.Start, q.End)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.Calendar{
		ListingID: q.ListingID,
		Start:     daterange.Format(q.Start),
		End:       daterange.Format(q.End),
		Days:      dto.MapCalendarDays(days),
	}, nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)

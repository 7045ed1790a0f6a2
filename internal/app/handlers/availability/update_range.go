package availability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/outbox"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/events"
)

const UpdateRangeKey = "availability.update_range"

type EntryInput struct {
	Date          time.Time `validate:"required"`
	IsAvailable   bool
	PriceOverride *decimal.Decimal
}

type UpdateRangeCommand struct {
	ListingID string       `validate:"required"`
	Entries   []EntryInput `validate:"required,min=1,dive"`
	IdemKey   string
}

func (UpdateRangeCommand) Key() string              { return UpdateRangeKey }
func (c UpdateRangeCommand) ScopeListingID() string { return c.ListingID }
func (c UpdateRangeCommand) IdempotencyKey() string { return c.IdemKey }
func (UpdateRangeCommand) ResultPrototype() any     { return new(dto.CalendarUpdate) }

// DateSpan is the earliest and latest entry date.
func (c UpdateRangeCommand) DateSpan() (start, end time.Time) {
	for _, in := range c.Entries {
		if in.Date.IsZero() {
			continue
		}
		if start.IsZero() || in.Date.Before(start) {
			start = in.Date
		}
		if end.IsZero() || in.Date.After(end) {
			end = in.Date
		}
	}
	return start, end
}

// UpdateRangeHandler runs inside the Transaction middleware and stages a
// calendar.updated event in the unit's outbox.
type UpdateRangeHandler struct {
	Encoder outbox.EventEncoder
	Clock   Clock
}

func (h *UpdateRangeHandler) Handle(ctx context.Context, cmd UpdateRangeCommand) (dto.CalendarUpdate, error) {
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return dto.CalendarUpdate{}, err
	}
	today := h.Clock.today()
	entries := make([]domainavailability.DateEntry, 0, len(cmd.Entries))
	for _, in := range cmd.Entries {
		if !in.Date.IsZero() {
			if err := rejectPast(today, in.Date); err != nil {
				return dto.CalendarUpdate{}, err
			}
		}
		entries = append(entries, domainavailability.DateEntry{
			Date:          in.Date,
			IsAvailable:   in.IsAvailable,
			PriceOverride: in.PriceOverride,
		})
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.CalendarUpdate{}, err
	}
	days, err := domainavailability.NewEngine(unit.Calendar()).UpdateRange(ctx, listing, entries)
	if err != nil {
		return dto.CalendarUpdate{}, err
	}

	ev := domainavailability.CalendarUpdatedEvent(listing.ID, days, h.Clock.now())
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, []events.DomainEvent{ev}); err != nil {
		return dto.CalendarUpdate{}, err
	}
	return dto.CalendarUpdate{ListingID: cmd.ListingID, Days: dto.MapCalendarDays(days)}, nil
}

var _ commands.Handler[UpdateRangeCommand, dto.CalendarUpdate] = (*UpdateRangeHandler)(nil)

package availability

import (
	"context"
	"time"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/outbox"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
	"staycal/internal/domain/shared/events"
)

const BlockRangeKey = "availability.block_range"

type BlockRangeCommand struct {
	ListingID string    `validate:"required"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required"`
	Reason    string    `validate:"max=500"`
	IdemKey   string
}

func (BlockRangeCommand) Key() string              { return BlockRangeKey }
func (c BlockRangeCommand) ScopeListingID() string { return c.ListingID }
func (c BlockRangeCommand) IdempotencyKey() string { return c.IdemKey }
func (BlockRangeCommand) ResultPrototype() any     { return new(dto.BlockedRange) }

func (c BlockRangeCommand) DateSpan() (time.Time, time.Time) { return c.Start, c.End }

type BlockRangeHandler struct {
	Encoder outbox.EventEncoder
	Clock   Clock
}

func (h *BlockRangeHandler) Handle(ctx context.Context, cmd BlockRangeCommand) (dto.BlockedRange, error) {
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return dto.BlockedRange{}, err
	}
	if err := rejectPast(h.Clock.today(), cmd.Start); err != nil {
		return dto.BlockedRange{}, err
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.BlockedRange{}, err
	}
	blocked, err := domainavailability.NewEngine(unit.Calendar()).BlockRange(ctx, listing, cmd.Start, cmd.End, cmd.Reason)
	if err != nil {
		return dto.BlockedRange{}, err
	}

	// The reason travels with the event only.
	ev := domainavailability.CalendarBlockedEvent(listing.ID, blocked, cmd.Reason, h.Clock.now())
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, []events.DomainEvent{ev}); err != nil {
		return dto.BlockedRange{}, err
	}

	out := dto.BlockedRange{ListingID: cmd.ListingID, Reason: cmd.Reason, Dates: make([]string, 0, len(blocked))}
	for _, d := range blocked {
		out.Dates = append(out.Dates, daterange.Format(d))
	}
	return out, nil
}

var _ commands.Handler[BlockRangeCommand, dto.BlockedRange] = (*BlockRangeHandler)(nil)

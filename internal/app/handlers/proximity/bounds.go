package proximity

import (
	"context"

	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
	domainproximity "staycal/internal/domain/proximity"
)

const BoundsKey = "proximity.bounds"

type BoundsQuery struct {
	North float64 `validate:"gte=-90,lte=90"`
	South float64 `validate:"gte=-90,lte=90"`
	East  float64 `validate:"gte=-180,lte=180"`
	West  float64 `validate:"gte=-180,lte=180"`
	Limit int     `validate:"gte=0,lte=500"`
}

func (q BoundsQuery) Key() string { return BoundsKey }

type BoundsHandler struct {
	UoWFactory uow.UoWFactory
	Observer   ResultObserver
}

func (h *BoundsHandler) Handle(ctx context.Context, q BoundsQuery) (dto.BoundsResult, error) {
	opts := domainproximity.BoundsOptions{North: q.North, South: q.South, East: q.East, West: q.West, Limit: q.Limit}
	box, err := opts.Box()
	if err != nil {
		return dto.BoundsResult{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BoundsResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	candidates, err := unit.Listings().InBox(ctx, box)
	if err != nil {
		return dto.BoundsResult{}, err
	}
	found, err := domainproximity.WithinBounds(opts, candidates)
	if err != nil {
		return dto.BoundsResult{}, err
	}
	items := make([]dto.Listing, 0, len(found))
	for _, l := range found {
		items = append(items, dto.MapListing(l))
	}
	if h.Observer != nil {
		h.Observer.ObserveProximity("bounds", len(items))
	}
	return dto.BoundsResult{Items: items, Total: len(items)}, nil
}

var _ queries.Handler[BoundsQuery, dto.BoundsResult] = (*BoundsHandler)(nil)

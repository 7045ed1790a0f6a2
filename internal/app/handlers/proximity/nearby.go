package proximity

import (
	"context"

	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
	domainproximity "staycal/internal/domain/proximity"
)

const NearbyKey = "proximity.nearby"

type NearbyQuery struct {
	Lat      float64 `validate:"gte=-90,lte=90"`
	Lon      float64 `validate:"gte=-180,lte=180"`
	RadiusKm float64
	Exact    bool
	Limit    int `validate:"gte=0,lte=500"`
}

func (q NearbyQuery) Key() string { return NearbyKey }

// ResultObserver receives the size of every proximity answer.
type ResultObserver interface {
	ObserveProximity(kind string, n int)
}

// NearbyHandler narrows candidates with the repository box query and leaves
// filtering and ordering to the domain engine.
type NearbyHandler struct {
	UoWFactory uow.UoWFactory
	Observer   ResultObserver
}

func (h *NearbyHandler) Handle(ctx context.Context, q NearbyQuery) (dto.NearbyResult, error) {
	box, err := domainproximity.BoundingBox(q.Lat, q.Lon, q.RadiusKm)
	if err != nil {
		return dto.NearbyResult{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.NearbyResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	candidates, err := unit.Listings().InBox(ctx, box)
	if err != nil {
		return dto.NearbyResult{}, err
	}
	results, err := domainproximity.Nearby(domainproximity.NearbyOptions{
		Lat:      q.Lat,
		Lon:      q.Lon,
		RadiusKm: q.RadiusKm,
		Exact:    q.Exact,
		Limit:    q.Limit,
	}, candidates)
	if err != nil {
		return dto.NearbyResult{}, err
	}

	items := make([]dto.NearbyListing, 0, len(results))
	for _, r := range results {
		items = append(items, dto.NearbyListing{Listing: dto.MapListing(r.Listing), DistanceKm: r.DistanceKm})
	}
	if h.Observer != nil {
		h.Observer.ObserveProximity("nearby", len(items))
	}
	return dto.NearbyResult{Items: items, Total: len(items)}, nil
}

var _ queries.Handler[NearbyQuery, dto.NearbyResult] = (*NearbyHandler)(nil)

package listings

import (
	"context"

	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
	domainlistings "staycal/internal/domain/listings"
)

const GetListingKey = "listings.get"

type GetListingQuery struct {
	ID string `validate:"required"`
}

func (q GetListingQuery) Key() string { return GetListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.Listing, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Listing{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ID))
	if err != nil {
		return dto.Listing{}, err
	}
	return dto.MapListing(listing), nil
}

var _ queries.Handler[GetListingQuery, dto.Listing] = (*GetListingHandler)(nil)

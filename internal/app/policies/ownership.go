package policies

import (
	"context"
	"errors"

	"staycal/internal/app/handlers/support"
	"staycal/internal/app/principal"
	"staycal/internal/app/uow"
	domainlistings "staycal/internal/domain/listings"
)

var (
	ErrUnauthenticated = errors.New("policies: authentication required")
	ErrForbidden       = errors.New("policies: listing belongs to another host")
)

// ListingOwnership allows a command only when the authenticated host owns
// the target listing.
type ListingOwnership struct {
	UoWFactory uow.UoWFactory
}

func (p ListingOwnership) AuthorizeListing(ctx context.Context, listingID string) error {
	host, ok := principal.HostFrom(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, p.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(listingID))
	if err != nil {
		return err
	}
	if !listing.OwnedBy(host) {
		return ErrForbidden
	}
	return nil
}

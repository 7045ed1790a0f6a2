package middleware

import (
	"context"

	"staycal/internal/app/commands"
)

// ListingScoped is implemented by commands that mutate one listing.
type ListingScoped interface {
	ScopeListingID() string
}

// Authorizer decides whether the caller in ctx may act on a listing.
type Authorizer interface {
	AuthorizeListing(ctx context.Context, listingID string) error
}

// Authorization checks ListingScoped commands and passes everything else through.
func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if scoped, ok := cmd.(ListingScoped); ok {
				if err := a.AuthorizeListing(ctx, scoped.ScopeListingID()); err != nil {
					return nil, err
				}
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

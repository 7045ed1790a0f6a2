package policies

import (
	"context"
	"io"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

// CalendarRenderer turns a materialized calendar into a downloadable document.
type CalendarRenderer interface {
	Render(listing *domainlistings.Listing, days []domainavailability.CalendarDay) ([]byte, error)
	ContentType() string
	Extension() string
}

// ObjectUploader stores a document and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}

package availability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/support"
	"staycal/internal/app/policies"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
)

const ExportCalendarKey = "availability.export"

// ErrExportDisabled is returned when no object storage is configured.
var ErrExportDisabled = errors.New("availability: calendar export is not configured")

type ExportCalendarCommand struct {
	ListingID string    `validate:"required"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required"`
}

func (ExportCalendarCommand) Key() string              { return ExportCalendarKey }
func (c ExportCalendarCommand) ScopeListingID() string { return c.ListingID }

func (c ExportCalendarCommand) DateSpan() (time.Time, time.Time) { return c.Start, c.End }

type ExportCalendarHandler struct {
	Renderer policies.CalendarRenderer
	Uploader policies.ObjectUploader
	Clock    Clock
}

func (h *ExportCalendarHandler) Handle(ctx context.Context, cmd ExportCalendarCommand) (dto.CalendarExport, error) {
	if h.Renderer == nil || h.Uploader == nil {
		return dto.CalendarExport{}, ErrExportDisabled
	}
	unit, err := support.UnitFromContext(ctx)
	if err != nil {
		return dto.CalendarExport{}, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.CalendarExport{}, err
	}
	days, err := domainavailability.NewEngine(unit.Calendar()).GetCalendar(ctx, listing, cmd.Start, cmd.End)
	if err != nil {
		return dto.CalendarExport{}, err
	}
	body, err := h.Renderer.Render(listing, days)
	if err != nil {
		return dto.CalendarExport{}, fmt.Errorf("render calendar: %w", err)
	}

	now := h.Clock.now()
	key := fmt.Sprintf("calendars/%s/%s_%s_%d.%s",
		listing.ID, daterange.Format(cmd.Start), daterange.Format(cmd.End), now.Unix(), h.Renderer.Extension())
	url, err := h.Uploader.Upload(ctx, key, bytes.NewReader(body), h.Renderer.ContentType())
	if err != nil {
		return dto.CalendarExport{}, fmt.Errorf("upload calendar: %w", err)
	}
	return dto.CalendarExport{
		ListingID: cmd.ListingID,
		Key:       key,
		URL:       url,
		Days:      len(days),
		CreatedAt: now,
	}, nil
}

var _ commands.Handler[ExportCalendarCommand, dto.CalendarExport] = (*ExportCalendarHandler)(nil)

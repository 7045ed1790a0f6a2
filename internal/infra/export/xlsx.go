// Package export renders materialized calendars as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"staycal/internal/app/policies"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
)

const sheet = "Calendar"

var header = []any{"Date", "Available", "Price override", "Effective price"}

// XLSX writes one row per day under a header row. Prices are strings with
// two decimals so no float rounding reaches the file.
type XLSX struct{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSX) Extension() string { return "xlsx" }

func (XLSX) Render(listing *domainlistings.Listing, days []domainavailability.CalendarDay) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if listing != nil {
		if err := f.SetDocProps(&excelize.DocProperties{
			Title:   "Calendar " + string(listing.ID),
			Subject: listing.Title,
			Creator: "staycal",
		}); err != nil {
			return nil, fmt.Errorf("set doc props: %w", err)
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, d := range days {
		override := ""
		if d.PriceOverride != nil {
			override = d.PriceOverride.StringFixed(2)
		}
		row := []any{daterange.Format(d.Date), d.IsAvailable, override, d.EffectivePrice.StringFixed(2)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "D", 16); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

var _ policies.CalendarRenderer = XLSX{}

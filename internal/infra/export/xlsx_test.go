package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

func TestXLSXRendersOneRowPerDay(t *testing.T) {
	override := decimal.RequireFromString("150")
	days := []domainavailability.CalendarDay{
		{Date: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), IsAvailable: true, EffectivePrice: decimal.RequireFromString("99.5")},
		{Date: time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC), IsAvailable: false, PriceOverride: &override, EffectivePrice: override},
	}
	raw, err := XLSX{}.Render(&domainlistings.Listing{ID: "L1", Title: "Loft"}, days)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Available", "Price override", "Effective price"}, rows[0])
	assert.Equal(t, []string{"2025-08-01", "TRUE", "", "99.50"}, rows[1])
	assert.Equal(t, []string{"2025-08-02", "FALSE", "150.00", "150.00"}, rows[2])

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "Calendar L1", props.Title)
	assert.Equal(t, "xlsx", XLSX{}.Extension())
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/domain/availability"
	"staycal/internal/domain/shared/daterange"
)

// FormatPrice renders prices with two decimal places.
func FormatPrice(p decimal.Decimal) string {
	return p.StringFixed(2)
}

type CalendarDay struct {
	Date           string  `json:"date"`
	IsAvailable    bool    `json:"is_available"`
	PriceOverride  *string `json:"price_override"`
	EffectivePrice string  `json:"effective_price"`
}

type Calendar struct {
	ListingID string        `json:"listing_id"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Days      []CalendarDay `json:"days"`
}

type NightPrice struct {
	Date  string `json:"date"`
	Price string `json:"price"`
}

type AvailabilityCheck struct {
	ListingID            string       `json:"listing_id"`
	CheckIn              string       `json:"check_in"`
	CheckOut             string       `json:"check_out"`
	IsAvailable          bool         `json:"is_available"`
	Nights               int          `json:"nights"`
	TotalPrice           string       `json:"total_price"`
	AveragePricePerNight string       `json:"average_price_per_night"`
	PriceBreakdown       []NightPrice `json:"price_breakdown"`
}

type CalendarUpdate struct {
	ListingID string        `json:"listing_id"`
	Days      []CalendarDay `json:"days"`
}

type BlockedRange struct {
	ListingID string   `json:"listing_id"`
	Dates     []string `json:"dates"`
	Reason    string   `json:"reason,omitempty"`
}

type CalendarExport struct {
	ListingID string    `json:"listing_id"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Days      int       `json:"days"`
	CreatedAt time.Time `json:"created_at"`
}

func MapCalendarDay(day availability.CalendarDay) CalendarDay {
	out := CalendarDay{
		Date:           daterange.Format(day.Date),
		IsAvailable:    day.IsAvailable,
		EffectivePrice: FormatPrice(day.EffectivePrice),
	}
	if day.PriceOverride != nil {
		p := FormatPrice(*day.PriceOverride)
		out.PriceOverride = &p
	}
	return out
}

func MapCalendarDays(days []availability.CalendarDay) []CalendarDay {
	out := make([]CalendarDay, 0, len(days))
	for _, d := range days {
		out = append(out, MapCalendarDay(d))
	}
	return out
}

func MapAvailabilityCheck(listingID string, checkIn, checkOut time.Time, res availability.CheckResult) AvailabilityCheck {
	out := AvailabilityCheck{
		ListingID:            listingID,
		CheckIn:              daterange.Format(checkIn),
		CheckOut:             daterange.Format(checkOut),
		IsAvailable:          res.IsAvailable,
		Nights:               res.Nights,
		TotalPrice:           FormatPrice(res.TotalPrice),
		AveragePricePerNight: FormatPrice(res.AveragePricePerNight),
		PriceBreakdown:       make([]NightPrice, 0, len(res.PriceBreakdown)),
	}
	for _, n := range res.PriceBreakdown {
		out.PriceBreakdown = append(out.PriceBreakdown, NightPrice{Date: daterange.Format(n.Date), Price: FormatPrice(n.Price)})
	}
	return out
}

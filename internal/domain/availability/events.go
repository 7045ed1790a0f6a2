package availability

import (
	"time"

	"staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
)

// CalendarUpdated is raised after overrides were written for Dates.
type CalendarUpdated struct {
	ListingID string    `json:"listing_id"`
	Dates     []string  `json:"dates"`
	At        time.Time `json:"at"`
}

func (e CalendarUpdated) EventName() string     { return "calendar.updated" }
func (e CalendarUpdated) AggregateID() string   { return e.ListingID }
func (e CalendarUpdated) OccurredAt() time.Time { return e.At }

// CalendarBlocked is raised after an inclusive range was blocked.
type CalendarBlocked struct {
	ListingID string    `json:"listing_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Dates     []string  `json:"dates"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.ListingID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

func CalendarUpdatedEvent(id listings.ListingID, days []CalendarDay, at time.Time) CalendarUpdated {
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, daterange.Format(d.Date))
	}
	return CalendarUpdated{ListingID: string(id), Dates: dates, At: at.UTC()}
}

func CalendarBlockedEvent(id listings.ListingID, dates []time.Time, reason string, at time.Time) CalendarBlocked {
	ev := CalendarBlocked{ListingID: string(id), Reason: reason, At: at.UTC()}
	for _, d := range dates {
		ev.Dates = append(ev.Dates, daterange.Format(d))
	}
	if len(dates) > 0 {
		ev.From = ev.Dates[0]
		ev.To = ev.Dates[len(ev.Dates)-1]
	}
	return ev
}

// AffectedDates lists the days an event touched, for cache invalidation.
func (e CalendarUpdated) AffectedDates() []string { return e.Dates }
func (e CalendarBlocked) AffectedDates() []string { return e.Dates }

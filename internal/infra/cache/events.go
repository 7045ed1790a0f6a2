package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appoutbox "staycal/internal/app/outbox"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
)

// CalendarChange is the part of calendar.* event payloads eviction needs.
type CalendarChange struct {
	ListingID string   `json:"listing_id"`
	Dates     []string `json:"dates"`
}

func DecodeCalendarChange(data []byte) (CalendarChange, error) {
	var change CalendarChange
	if err := json.Unmarshal(data, &change); err != nil {
		return CalendarChange{}, fmt.Errorf("decode calendar change: %w", err)
	}
	return change, nil
}

func (c CalendarChange) Days() ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Dates))
	for _, raw := range c.Dates {
		d, err := time.Parse(daterange.Layout, raw)
		if err != nil {
			return nil, fmt.Errorf("decode calendar change date %q: %w", raw, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Apply evicts the ranges touched by change.
func (s *CalendarStore) Apply(ctx context.Context, change CalendarChange) (int, error) {
	if change.ListingID == "" {
		return 0, nil
	}
	days, err := change.Days()
	if err != nil {
		return 0, err
	}
	return s.Invalidate(ctx, domainlistings.ListingID(change.ListingID), days)
}

// Publisher returns an outbox publisher that evicts locally once a record is
// committed. Records of other event families are ignored.
func (s *CalendarStore) Publisher() appoutbox.Publisher {
	return appoutbox.PublisherFunc(func(ctx context.Context, rec appoutbox.EventRecord) error {
		change, err := DecodeCalendarChange(rec.Payload)
		if err != nil {
			return err
		}
		_, err = s.Apply(ctx, change)
		return err
	})
}

// LocalSink accepts CloudEvents in place of a broker producer and evicts
// directly. It lets the relay worker drain the outbox when Kafka is off.
type LocalSink struct {
	Store *CalendarStore
}

func (s LocalSink) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode cloud event: %w", err)
	}
	if s.Store == nil || len(envelope.Data) == 0 {
		return nil
	}
	change, err := DecodeCalendarChange(envelope.Data)
	if err != nil {
		return err
	}
	if change.ListingID == "" {
		change.ListingID = key
	}
	_, err = s.Store.Apply(ctx, change)
	return err
}

package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/availability"
	"staycal/internal/domain/shared/events"
)

type recordingBox struct {
	records []EventRecord
}

func (b *recordingBox) Add(ctx context.Context, rec EventRecord) error {
	b.records = append(b.records, rec)
	return nil
}

func (b *recordingBox) Flush(ctx context.Context) error { return nil }

func TestRecordDomainEventsEncodesJSON(t *testing.T) {
	at := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	ev := availability.CalendarUpdated{ListingID: "L", Dates: []string{"2025-12-25"}, At: at}
	box := &recordingBox{}
	encoder := JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}

	require.NoError(t, RecordDomainEvents(context.Background(), box, encoder, []events.DomainEvent{ev}))
	require.Len(t, box.records, 1)

	rec := box.records[0]
	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "calendar.updated", rec.Name)
	assert.Equal(t, "L", rec.Aggregate)
	assert.Equal(t, at, rec.OccurredAt)
	assert.NotNil(t, rec.Headers)

	var decoded availability.CalendarUpdated
	require.NoError(t, json.Unmarshal(rec.Payload, &decoded))
	assert.Equal(t, []string{"2025-12-25"}, decoded.Dates)
}

func TestRecordDomainEventsNoop(t *testing.T) {
	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{availability.CalendarUpdated{}}))
	box := &recordingBox{}
	assert.NoError(t, RecordDomainEvents(context.Background(), box, nil, nil))
	assert.Empty(t, box.records)
}

func TestFanoutStopsAtFirstError(t *testing.T) {
	var seen []string
	pub := func(name string, err error) Publisher {
		return PublisherFunc(func(ctx context.Context, rec EventRecord) error {
			seen = append(seen, name+":"+rec.ID)
			return err
		})
	}
	fail := assert.AnError

	require.NoError(t, Fanout(pub("a", nil), nil, pub("b", nil)).Publish(context.Background(), EventRecord{ID: "1"}))
	assert.Equal(t, []string{"a:1", "b:1"}, seen)

	seen = nil
	err := Fanout(pub("a", fail), pub("b", nil)).Publish(context.Background(), EventRecord{ID: "2"})
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, []string{"a:2"}, seen)
}

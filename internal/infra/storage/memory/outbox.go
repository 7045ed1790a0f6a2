package memory

import (
	"context"
	"sync"

	appoutbox "staycal/internal/app/outbox"
)

// Outbox keeps committed records in memory until Flush hands them to the
// publisher. Records that fail to publish stay queued for the next flush.
type Outbox struct {
	mu        sync.Mutex
	records   []appoutbox.EventRecord
	publisher appoutbox.Publisher
}

// NewOutbox returns an outbox relaying to publisher. A nil publisher drops
// records on flush.
func NewOutbox(publisher appoutbox.Publisher) *Outbox {
	return &Outbox{publisher: publisher}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.publisher == nil {
		o.records = nil
		return nil
	}
	for i, rec := range o.records {
		if err := o.publisher.Publish(ctx, rec); err != nil {
			o.records = append([]appoutbox.EventRecord(nil), o.records[i:]...)
			return err
		}
	}
	o.records = nil
	return nil
}

// Pending returns a copy of the queued records.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.records...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)

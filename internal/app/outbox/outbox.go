package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"staycal/internal/domain/shared/events"
)

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stages records inside the current unit of work. Flush hands staged
// records to the relay once the unit has committed.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ctx context.Context, ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder marshals the event as JSON and propagates the W3C trace
// context of ctx into the record headers.
type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ctx context.Context, ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	headers := map[string]string{}
	propagation.TraceContext{}.Inject(ctx, propagation.MapCarrier(headers))
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    headers,
	}, nil
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ctx, ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Publisher relays a committed record to the message broker.
type Publisher interface {
	Publish(ctx context.Context, record EventRecord) error
}

type PublisherFunc func(ctx context.Context, record EventRecord) error

func (f PublisherFunc) Publish(ctx context.Context, record EventRecord) error {
	return f(ctx, record)
}

// Fanout publishes to each publisher in order and stops at the first error,
// so a failed record is retried against all of them.
func Fanout(publishers ...Publisher) Publisher {
	return PublisherFunc(func(ctx context.Context, record EventRecord) error {
		for _, p := range publishers {
			if p == nil {
				continue
			}
			if err := p.Publish(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

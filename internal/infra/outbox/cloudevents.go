package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	appoutbox "staycal/internal/app/outbox"
)

var ErrInvalidPayload = errors.New("outbox: payload is not valid JSON")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Envelope wraps outbox records as structured CloudEvents 1.0 messages keyed
// by aggregate id.
type Envelope struct {
	TopicPrefix string
	Source      string
}

// TopicFor maps "calendar.updated" to "<prefix>calendar.events.v1".
func (e Envelope) TopicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return e.TopicPrefix + base + ".events.v1"
}

func (e Envelope) Wrap(rec appoutbox.EventRecord) ([]byte, map[string]string, error) {
	var data json.RawMessage = rec.Payload
	if !json.Valid(data) {
		return nil, nil, ErrInvalidPayload
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              id,
		"type":            rec.Name + ".v1",
		"source":          e.source(),
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if tp, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = tp
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce_id":        id,
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (e Envelope) source() string {
	if e.Source != "" {
		return e.Source
	}
	return "app://staycal"
}

// DirectPublisher relays records straight to the producer. The in-memory
// outbox uses it on flush.
type DirectPublisher struct {
	Envelope Envelope
	Producer Producer
	Observer PublishObserver
}

func (p DirectPublisher) Publish(ctx context.Context, rec appoutbox.EventRecord) error {
	payload, headers, err := p.Envelope.Wrap(rec)
	if err == nil {
		err = p.Producer.Publish(ctx, p.Envelope.TopicFor(rec.Name), rec.Aggregate, payload, headers)
	}
	if p.Observer != nil {
		p.Observer.ObservePublish(rec.Name, err)
	}
	return err
}

var _ appoutbox.Publisher = DirectPublisher{}

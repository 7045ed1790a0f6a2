package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/propagation"

	"staycal/internal/infra/cache"
)

var ErrMalformedEvent = errors.New("kafka: malformed cloud event")

type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Invalidator interface {
	Apply(ctx context.Context, change cache.CalendarChange) (int, error)
}

type cloudEvent struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Subject     string          `json:"subject"`
	TraceParent string          `json:"traceparent"`
	Data        json.RawMessage `json:"data"`
}

// CalendarEvents evicts cached calendar ranges named by calendar.* events
// published by any replica.
type CalendarEvents struct {
	Inbox       Inbox
	Invalidator Invalidator
	Logger      *slog.Logger
}

func (h CalendarEvents) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil || h.Invalidator == nil {
		return nil
	}
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil || evt.ID == "" {
		// poison messages are dropped so the partition keeps moving
		h.warn(ctx, "drop malformed calendar event", msg, ErrMalformedEvent)
		return nil
	}
	if !strings.HasPrefix(evt.Type, "calendar.") {
		return nil
	}
	ctx = propagation.TraceContext{}.Extract(ctx, headerCarrier(msg.Headers, evt.TraceParent))

	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
		if seen {
			return nil
		}
	}
	change, err := cache.DecodeCalendarChange(evt.Data)
	if err == nil {
		if change.ListingID == "" {
			change.ListingID = evt.Subject
		}
		_, err = h.Invalidator.Apply(ctx, change)
	}
	if err != nil {
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(ctx, evt.ID); ferr != nil {
				h.warn(ctx, "inbox forget failed", msg, ferr)
			}
		}
		return fmt.Errorf("invalidate %s: %w", evt.ID, err)
	}
	return nil
}

func (h CalendarEvents) warn(ctx context.Context, text string, msg *sarama.ConsumerMessage, err error) {
	if h.Logger != nil {
		h.Logger.WarnContext(ctx, text, "topic", msg.Topic, "offset", msg.Offset, "error", err)
	}
}

func headerCarrier(headers []*sarama.RecordHeader, traceparent string) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		if h != nil {
			carrier[string(h.Key)] = string(h.Value)
		}
	}
	if _, ok := carrier["traceparent"]; !ok && traceparent != "" {
		carrier["traceparent"] = traceparent
	}
	return carrier
}

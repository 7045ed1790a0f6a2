package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "staycal/internal/app/outbox"
)

type fakeStore struct {
	mu     sync.Mutex
	docs   []*EventDocument
	sent   []string
	failed map[string]int
}

func (s *fakeStore) Claim(ctx context.Context, workerID string, claimTimeout time.Duration) (*EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, d := range s.docs {
		if (d.State == stateNew || d.State == stateFailed) && !d.NextAttempt.After(now) {
			d.State = stateClaimed
			d.ClaimedBy = workerID
			return d, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	for _, d := range s.docs {
		if d.ID == id {
			d.State = stateSent
		}
	}
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id]++
	for _, d := range s.docs {
		if d.ID == id {
			d.State = stateFailed
			d.NextAttempt = next
			d.LastError = errMsg
			d.Attempts++
		}
	}
	return nil
}

type message struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	messages []message
	failKey  string
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if key == p.failKey {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, message{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

type publishCounts map[string]int

func (c publishCounts) ObservePublish(event string, err error) {
	if err != nil {
		c[event+":error"]++
		return
	}
	c[event+":ok"]++
}

func doc(id, name, aggregate string) *EventDocument {
	return &EventDocument{
		ID:         id,
		Name:       name,
		Aggregate:  aggregate,
		Payload:    []byte(`{"listing_id":"` + aggregate + `"}`),
		OccurredAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Headers:    map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		State:      stateNew,
	}
}

func TestEnvelopeTopicAndWrap(t *testing.T) {
	env := Envelope{TopicPrefix: "prod."}
	assert.Equal(t, "prod.calendar.events.v1", env.TopicFor("calendar.updated"))
	assert.Equal(t, "prod.calendar.events.v1", env.TopicFor("calendar.blocked"))
	assert.Equal(t, "prod.plain.events.v1", env.TopicFor("plain"))

	payload, headers, err := env.Wrap(doc("e1", "calendar.updated", "L1").Record())
	require.NoError(t, err)
	assert.Equal(t, "application/cloudevents+json", headers["content-type"])
	assert.Equal(t, "e1", headers["ce_id"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "e1", evt["id"])
	assert.Equal(t, "calendar.updated.v1", evt["type"])
	assert.Equal(t, "app://staycal", evt["source"])
	assert.Equal(t, "L1", evt["subject"])
	assert.Equal(t, map[string]any{"listing_id": "L1"}, evt["data"])
	assert.NotEmpty(t, evt["traceparent"])

	_, _, err = env.Wrap(appoutbox.EventRecord{Name: "x", Payload: []byte("{")})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestWorkerDrainPublishesAndReschedulesFailures(t *testing.T) {
	store := &fakeStore{
		docs:   []*EventDocument{doc("e1", "calendar.updated", "L1"), doc("e2", "calendar.blocked", "L2"), doc("e3", "calendar.updated", "L3")},
		failed: map[string]int{},
	}
	producer := &fakeProducer{failKey: "L2"}
	counts := publishCounts{}
	w := &Worker{
		Store:    store,
		Producer: producer,
		Envelope: Envelope{},
		ID:       "w1",
		Backoff:  []time.Duration{time.Hour},
		Observer: counts,
	}

	handled, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, handled)
	assert.Equal(t, []string{"e1", "e3"}, store.sent)
	assert.Equal(t, 1, store.failed["e2"])
	assert.True(t, store.docs[1].NextAttempt.After(time.Now().Add(59*time.Minute)))
	assert.Equal(t, "broker unavailable", store.docs[1].LastError)

	require.Len(t, producer.messages, 2)
	assert.Equal(t, "calendar.events.v1", producer.messages[0].topic)
	assert.Equal(t, "L1", producer.messages[0].key)
	assert.Equal(t, 2, counts["calendar.updated:ok"])
	assert.Equal(t, 1, counts["calendar.blocked:error"])

	handled, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, handled)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	assert.ErrorIs(t, (&Worker{}).Run(context.Background()), ErrWorkerNotConfigured)
}

func TestWorkerRunStopsWithContext(t *testing.T) {
	store := &fakeStore{docs: []*EventDocument{doc("e1", "calendar.updated", "L1")}, failed: map[string]int{}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestDirectPublisher(t *testing.T) {
	producer := &fakeProducer{}
	counts := publishCounts{}
	p := DirectPublisher{Envelope: Envelope{TopicPrefix: "dev."}, Producer: producer, Observer: counts}

	require.NoError(t, p.Publish(context.Background(), doc("e9", "calendar.blocked", "L9").Record()))
	require.Len(t, producer.messages, 1)
	assert.Equal(t, "dev.calendar.events.v1", producer.messages[0].topic)
	assert.Equal(t, 1, counts["calendar.blocked:ok"])
}

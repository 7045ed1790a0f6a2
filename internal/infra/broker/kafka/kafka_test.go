package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "staycal/internal/app/outbox"
	domainavailability "staycal/internal/domain/availability"
	"staycal/internal/infra/cache"
	"staycal/internal/infra/inbox"
	"staycal/internal/infra/outbox"
)

type recordingInvalidator struct {
	changes []cache.CalendarChange
	err     error
}

func (r *recordingInvalidator) Apply(ctx context.Context, change cache.CalendarChange) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.changes = append(r.changes, change)
	return len(change.Dates), nil
}

func calendarMessage(t *testing.T, id string) *sarama.ConsumerMessage {
	t.Helper()
	ev := domainavailability.CalendarBlockedEvent("L1", []time.Time{
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
	}, "", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	rec, err := appoutbox.JSONEventEncoder{IDGenerator: func() string { return id }}.Encode(context.Background(), ev)
	require.NoError(t, err)
	payload, headers, err := outbox.Envelope{}.Wrap(rec)
	require.NoError(t, err)
	msg := &sarama.ConsumerMessage{Topic: "calendar.events.v1", Value: payload}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, &sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return msg
}

func TestCalendarEventsAppliesOncePerEventID(t *testing.T) {
	inv := &recordingInvalidator{}
	h := CalendarEvents{Inbox: inbox.NewMemory(10), Invalidator: inv}
	msg := calendarMessage(t, "evt-1")

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, inv.changes, 1)
	assert.Equal(t, "L1", inv.changes[0].ListingID)
	assert.Equal(t, []string{"2025-05-01", "2025-05-02"}, inv.changes[0].Dates)
}

func TestCalendarEventsForgetsFailedEvents(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("redis down")}
	box := inbox.NewMemory(10)
	h := CalendarEvents{Inbox: box, Invalidator: inv}
	msg := calendarMessage(t, "evt-2")

	assert.Error(t, h.Handle(context.Background(), msg))

	inv.err = nil
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, inv.changes, 1)
}

func TestCalendarEventsIgnoresForeignAndMalformedMessages(t *testing.T) {
	inv := &recordingInvalidator{}
	h := CalendarEvents{Invalidator: inv}

	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}))
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{
		Value: []byte(`{"id":"x","type":"listing.created.v1","data":{}}`),
	}))
	assert.Empty(t, inv.changes)
}

func TestProducerSendsHeaders(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"ok":true}` {
			return errors.New("unexpected payload")
		}
		return nil
	})
	p := NewProducerFrom(mock)

	err := p.Publish(context.Background(), "t", "L1", []byte(`{"ok":true}`), map[string]string{"ce_id": "1"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProducerFrom(nil)
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(msgs ...*sarama.ConsumerMessage) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return fakeClaim{messages: ch}
}

type flakyHandler struct {
	failures map[int64]int
	handled  []int64
}

func (h *flakyHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if h.failures[msg.Offset] > 0 {
		h.failures[msg.Offset]--
		return errors.New("redis down")
	}
	h.handled = append(h.handled, msg.Offset)
	return nil
}

func TestConsumeClaimRetriesInPlace(t *testing.T) {
	handler := &flakyHandler{failures: map[int64]int{1: 2}}
	sess := &fakeSession{ctx: context.Background()}
	h := consumerGroupHandler{handler: handler, attempts: 3, backoff: time.Millisecond}

	err := h.ConsumeClaim(sess, claimOf(
		&sarama.ConsumerMessage{Offset: 1},
		&sarama.ConsumerMessage{Offset: 2},
	))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, handler.handled)
	assert.Equal(t, []int64{1, 2}, sess.marked)
}

func TestConsumeClaimStopsAtPersistentFailure(t *testing.T) {
	handler := &flakyHandler{failures: map[int64]int{1: 10}}
	sess := &fakeSession{ctx: context.Background()}
	h := consumerGroupHandler{handler: handler, attempts: 2, backoff: time.Millisecond}

	err := h.ConsumeClaim(sess, claimOf(
		&sarama.ConsumerMessage{Offset: 1},
		&sarama.ConsumerMessage{Offset: 2},
	))
	require.Error(t, err)
	assert.Empty(t, handler.handled)
	assert.Empty(t, sess.marked)
	assert.Equal(t, 8, handler.failures[1])
}

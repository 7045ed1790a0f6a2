package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type ClaimStore interface {
	Claim(ctx context.Context, workerID string, claimTimeout time.Duration) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type PublishObserver interface {
	ObservePublish(event string, err error)
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Worker polls the store and publishes due records, retrying failures on the
// Backoff schedule.
type Worker struct {
	Store        ClaimStore
	Producer     Producer
	Envelope     Envelope
	Interval     time.Duration
	ClaimTimeout time.Duration
	ID           string
	Backoff      []time.Duration
	Logger       *slog.Logger
	Observer     PublishObserver
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if w.Logger != nil {
					w.Logger.Warn("outbox drain failed", "error", err)
				}
			}
		}
	}
}

// Drain handles due records until none is left and returns how many were
// claimed, failed publishes included.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	handled := 0
	for {
		ok, err := w.processOnce(ctx)
		if err != nil || !ok {
			return handled, err
		}
		handled++
	}
}

// processOnce reports false when nothing was due.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	doc, err := w.Store.Claim(ctx, w.ID, w.claimTimeout())
	if err != nil || doc == nil {
		return false, err
	}
	payload, headers, err := w.Envelope.Wrap(doc.Record())
	if err == nil {
		err = w.Producer.Publish(ctx, w.Envelope.TopicFor(doc.Name), doc.Aggregate, payload, headers)
	}
	if w.Observer != nil {
		w.Observer.ObservePublish(doc.Name, err)
	}
	if err != nil {
		if w.Logger != nil {
			w.Logger.Warn("outbox publish failed", "id", doc.ID, "event", doc.Name, "attempts", doc.Attempts+1, "error", err)
		}
		// The record is rescheduled; keep draining the others.
		return true, w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
	}
	return true, w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) claimTimeout() time.Duration {
	if w.ClaimTimeout <= 0 {
		return time.Minute
	}
	return w.ClaimTimeout
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

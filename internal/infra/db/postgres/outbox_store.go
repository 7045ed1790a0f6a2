package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "staycal/internal/app/outbox"
	infraoutbox "staycal/internal/infra/outbox"
)

const (
	outboxNew     = "NEW"
	outboxClaimed = "CLAIMED"
	outboxSent    = "SENT"
	outboxFailed  = "FAILED"
)

// OutboxStore keeps events in outbox_events, written in the unit's
// transaction and drained by the relay worker.
type OutboxStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

func (s *OutboxStore) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	headers := rec.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := conn(ctx, s.pool).Exec(ctx,
		`INSERT INTO outbox_events (id, name, aggregate, payload, headers, occurred_at, state, next_attempt_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Name, rec.Aggregate, rec.Payload, headers, rec.OccurredAt.UTC(), outboxNew, s.now(),
	)
	if err != nil {
		return fmt.Errorf("add outbox event: %w", err)
	}
	return nil
}

// Flush is a no-op: the worker polls the table.
func (s *OutboxStore) Flush(context.Context) error { return nil }

// Claim takes the oldest due row with SKIP LOCKED so concurrent workers never
// receive the same record.
func (s *OutboxStore) Claim(ctx context.Context, workerID string, claimTimeout time.Duration) (*infraoutbox.EventDocument, error) {
	now := s.now()
	row := s.pool.QueryRow(ctx,
		`UPDATE outbox_events SET state = $1, claimed_by = $2, claimed_at = $3
		 WHERE id = (
			SELECT id FROM outbox_events
			WHERE (state IN ($4, $5) AND next_attempt_at <= $3)
			   OR (state = $1 AND claimed_at <= $6)
			ORDER BY next_attempt_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, name, aggregate, payload, headers, occurred_at, state, attempts, next_attempt_at, created_at`,
		outboxClaimed, workerID, now, outboxNew, outboxFailed, now.Add(-claimTimeout),
	)
	var doc infraoutbox.EventDocument
	err := row.Scan(&doc.ID, &doc.Name, &doc.Aggregate, &doc.Payload, &doc.Headers,
		&doc.OccurredAt, &doc.State, &doc.Attempts, &doc.NextAttempt, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim outbox event: %w", err)
	}
	doc.ClaimedBy, doc.ClaimedAt = workerID, now
	return &doc, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox_events SET state = $1, sent_at = $2 WHERE id = $3`, outboxSent, s.now(), id)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE outbox_events SET state = $1, next_attempt_at = $2, last_error = $3, attempts = attempts + 1 WHERE id = $4`,
		outboxFailed, next.UTC(), errMsg, id,
	)
	return err
}

var (
	_ appoutbox.Outbox        = (*OutboxStore)(nil)
	_ infraoutbox.ClaimStore = (*OutboxStore)(nil)
)

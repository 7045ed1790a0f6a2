package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"staycal/internal/app/middleware"
)

type IdempotencyStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewIdempotencyStore replays results newer than ttl; zero keeps them forever.
func NewIdempotencyStore(pool *pgxpool.Pool, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT request_hash, payload, occurred_at, created_at FROM app_idempotency WHERE key = $1`, key,
	).Scan(&rec.RequestHash, &rec.Payload, &rec.OccurredAt, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("get idempotency record: %w", err)
	}
	if s.ttl > 0 && time.Since(createdAt) > s.ttl {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

// Save keeps the first stored result for a key.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO app_idempotency (key, request_hash, payload, occurred_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO NOTHING`,
		rec.Key, rec.RequestHash, rec.Payload, rec.OccurredAt.UTC(),
	)
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

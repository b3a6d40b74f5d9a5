// Package database persists finished rounds to Postgres. Like the cache, it
// is optional: a nil Store is a no-op so the server runs fine without a
// database configured.
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS round_results (
	id           BIGSERIAL PRIMARY KEY,
	room_id      TEXT        NOT NULL,
	winner_id    TEXT        NOT NULL,
	winner_name  TEXT        NOT NULL,
	wins         JSONB       NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS round_results_room_idx ON round_results (room_id);
`

// Store wraps a pgx pool with the queries the rooms need.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, verifies connectivity and ensures the schema exists.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RecordRoundResult stores one finished round. A nil receiver is a no-op.
func (s *Store) RecordRoundResult(ctx context.Context, roomID, winnerID, winnerName string, wins map[string]int) error {
	if s == nil || s.pool == nil {
		return nil
	}
	winsJSON, err := json.Marshal(wins)
	if err != nil {
		return fmt.Errorf("encoding win tallies: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO round_results (room_id, winner_id, winner_name, wins) VALUES ($1, $2, $3, $4)`,
		roomID, winnerID, winnerName, winsJSON)
	if err != nil {
		return fmt.Errorf("inserting round result: %w", err)
	}
	return nil
}

// Close releases the pool. Safe on a nil receiver.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

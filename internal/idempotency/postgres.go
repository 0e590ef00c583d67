package idempotency

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PostgresStore deduplicates money-path events. Keys are never expired:
// a provider charge id must stay recognized for as long as the ledger
// that it credited exists.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) RecordIfNew(ctx context.Context, namespace, externalID string) (bool, error) {
	// ON CONFLICT DO NOTHING makes the insert the race arbiter: the
	// row count tells which caller got there first.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_events (provider, external_id)
		 VALUES ($1, $2)
		 ON CONFLICT (provider, external_id) DO NOTHING`,
		namespace, externalID,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

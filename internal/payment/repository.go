package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GVMBT/seo-master-sub005/internal/db"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) TransactionRepository {
	return &repository{db: database}
}

func (r *repository) Record(ctx context.Context, tx *Transaction) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO transactions (provider, external_charge_id, user_id, direction, payload, token_amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		tx.Provider, tx.ExternalChargeID, tx.UserID, tx.Direction, tx.Payload, tx.TokenAmount, tx.Status,
	).Scan(&tx.ID, &tx.CreatedAt)
}

func (r *repository) GetByChargeID(ctx context.Context, provider, chargeID string) (*Transaction, error) {
	tx := &Transaction{}
	err := r.db.GetContext(ctx, tx,
		`SELECT id, provider, external_charge_id, user_id, direction, payload, token_amount, status, refunded, created_at
		 FROM transactions
		 WHERE provider = $1 AND external_charge_id = $2`,
		provider, chargeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *repository) MarkRefunded(ctx context.Context, provider, chargeID string) (bool, error) {
	// The refunded = FALSE guard makes the flag flip the arbiter between
	// concurrent refund deliveries.
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET refunded = TRUE
		 WHERE provider = $1 AND external_charge_id = $2 AND refunded = FALSE`,
		provider, chargeID)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) HasRecentPurchase(ctx context.Context, userID int64, payload string, window time.Duration) (bool, error) {
	return db.Exists(ctx, r.db,
		`SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND payload = $2 AND direction = 'credit'
			  AND created_at > NOW() - make_interval(secs => $3)
		 )`,
		userID, payload, window.Seconds())
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs,
		`SELECT id, provider, external_charge_id, user_id, direction, payload, token_amount, status, refunded, created_at
		 FROM transactions
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs,
		`SELECT id, provider, external_charge_id, user_id, direction, payload, token_amount, status, refunded, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNonPositiveAmount   = errors.New("amount must be positive")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// applyDelta upserts the balance row and shifts it by delta in one
// statement. Used for credits and refund debits, which have no floor.
func (r *repository) applyDelta(ctx context.Context, userID, delta int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO balances (user_id, balance)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id)
		 DO UPDATE SET balance = balances.balance + EXCLUDED.balance, updated_at = NOW()
		 RETURNING balance`,
		userID, delta,
	).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repository) Charge(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}

	var balance int64
	err := r.db.QueryRowxContext(ctx,
		`UPDATE balances
		 SET balance = balance - $2, updated_at = NOW()
		 WHERE user_id = $1 AND balance >= $2
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// Either no row or the guard rejected the deduction.
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repository) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	return r.applyDelta(ctx, userID, amount)
}

func (r *repository) RefundDebit(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	return r.applyDelta(ctx, userID, -amount)
}

func (r *repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`SELECT balance FROM balances WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repository) ListUsersBelow(ctx context.Context, threshold int64) ([]LowBalanceUser, error) {
	var users []LowBalanceUser
	err := r.db.SelectContext(ctx, &users,
		`SELECT user_id, balance
		 FROM balances
		 WHERE balance < $1
		 ORDER BY user_id`,
		threshold)
	if err != nil {
		return nil, err
	}
	return users, nil
}

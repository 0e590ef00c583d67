package ledger

import "time"

// Balance is a user's token balance. One row per Telegram user.
// The balance may be negative: a refund debits the originally credited
// amount even when part of it was already spent.
type Balance struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LowBalanceUser is a recipient of the low-balance broadcast.
type LowBalanceUser struct {
	UserID  int64 `db:"user_id" json:"user_id"`
	Balance int64 `db:"balance" json:"balance"`
}

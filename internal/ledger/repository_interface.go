package ledger

import "context"

// Repository owns all balance mutations. Every write is a single
// conditional SQL statement so concurrent handlers across instances
// cannot interleave a read-modify-write.
type Repository interface {
	// Charge deducts amount from the user's balance. It never drives the
	// balance negative; ErrInsufficientBalance is returned instead.
	Charge(ctx context.Context, userID, amount int64) (int64, error)

	// Credit adds amount to the user's balance, creating the row if needed.
	Credit(ctx context.Context, userID, amount int64) (int64, error)

	// RefundDebit deducts amount without a floor. The resulting balance may
	// be negative when the user already spent part of the refunded credit.
	RefundDebit(ctx context.Context, userID, amount int64) (int64, error)

	GetBalance(ctx context.Context, userID int64) (int64, error)

	// ListUsersBelow returns users whose balance is under threshold,
	// for the low-balance broadcast.
	ListUsersBelow(ctx context.Context, threshold int64) ([]LowBalanceUser, error)
}

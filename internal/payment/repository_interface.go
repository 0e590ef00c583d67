package payment

import (
	"context"
	"time"
)

// TransactionRepository persists transaction records. MarkRefunded is an
// atomic conditional update so concurrent refund redeliveries resolve to
// exactly one debit.
type TransactionRepository interface {
	Record(ctx context.Context, tx *Transaction) error
	GetByChargeID(ctx context.Context, provider, chargeID string) (*Transaction, error)

	// MarkRefunded flips the refunded flag if it is still unset and
	// returns whether this call did the flip.
	MarkRefunded(ctx context.Context, provider, chargeID string) (bool, error)

	// HasRecentPurchase reports whether the user already bought the same
	// package inside the guard window (duplicate-purchase guard for
	// pre-checkout).
	HasRecentPurchase(ctx context.Context, userID int64, payload string, window time.Duration) (bool, error)

	List(ctx context.Context, limit, offset int) ([]Transaction, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Transaction, error)
}

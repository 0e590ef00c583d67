package notify

import "context"

// Dispatcher is the capability the payment and webhook processors use to
// inform a user. Delivery is best-effort: callers must only invoke it
// after their own state is durable.
type Dispatcher interface {
	Send(ctx context.Context, userID int64, kind, text string) error
}

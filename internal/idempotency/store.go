package idempotency

import "context"

// Namespaces partition deduplication keys per event source. Payment
// namespaces live in postgres and are kept forever; webhook-delivery
// namespaces live in redis with an expiry spanning the provider's
// redelivery window.
const (
	NamespaceStars   = "stars"
	NamespaceGateway = "gateway"
	NamespaceTaskQ   = "taskq"
)

// Store records processed event identifiers. RecordIfNew must be a single
// atomic check-and-insert: two concurrent calls with the same key see
// exactly one true result between them.
type Store interface {
	RecordIfNew(ctx context.Context, namespace, externalID string) (bool, error)
}

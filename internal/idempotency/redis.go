package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRetention comfortably covers the task dispatcher's redelivery
// window, which retries for a few minutes at most.
const DefaultRetention = 30 * time.Minute

// RedisStore deduplicates webhook deliveries whose identifiers only need
// to be remembered across the redelivery window, not forever.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) RecordIfNew(ctx context.Context, namespace, externalID string) (bool, error) {
	key := fmt.Sprintf("idem:%s:%s", namespace, externalID)

	// SET NX is atomic on the server, so concurrent duplicate deliveries
	// resolve to exactly one winner.
	ok, err := s.client.SetNX(ctx, key, 1, s.retention).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

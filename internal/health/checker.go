package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Checker probes one dependency. Check must respect ctx: the aggregator
// bounds every probe with its own timeout.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type PostgresChecker struct {
	db *sqlx.DB
}

func NewPostgresChecker(db *sqlx.DB) *PostgresChecker {
	return &PostgresChecker{db: db}
}

func (c *PostgresChecker) Name() string { return "postgres" }

func (c *PostgresChecker) Check(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// HTTPChecker probes an HTTP dependency (the LLM gateway, the task
// dispatcher). For an unauthenticated probe any response below 500
// counts as alive: 4xx proves the service is up and answering. A probe
// that sends credentials holds the dependency to a stricter bar, since
// a 401 or 403 there means our requests would be rejected too.
type HTTPChecker struct {
	name       string
	url        string
	authHeader string
	client     *http.Client
}

func NewHTTPChecker(name, url, authHeader string) *HTTPChecker {
	return &HTTPChecker{
		name:       name,
		url:        url,
		authHeader: authHeader,
		client:     &http.Client{},
	}
}

func (c *HTTPChecker) Name() string { return c.name }

func (c *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	failFrom := http.StatusInternalServerError
	if c.authHeader != "" {
		failFrom = http.StatusBadRequest
	}
	if resp.StatusCode >= failFrom {
		return fmt.Errorf("%s returned status %d", c.name, resp.StatusCode)
	}
	return nil
}

// probeTimeout bounds a single dependency probe, well under any
// request timeout so one stuck dependency cannot starve the rest.
const probeTimeout = 3 * time.Second

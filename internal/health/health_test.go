package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	name  string
	err   error
	delay time.Duration
}

func (f *fakeChecker) Name() string { return f.name }

func (f *fakeChecker) Check(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func TestAggregator_AllHealthy(t *testing.T) {
	agg := NewAggregator("1.4.2",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis"},
		&fakeChecker{name: "llm_gateway"},
		&fakeChecker{name: "dispatcher"},
	)

	result := agg.Run(context.Background())
	assert.Equal(t, StatusOK, result.Status)
	assert.Len(t, result.Checks, 4)
	assert.Equal(t, "1.4.2", result.Version)
}

func TestAggregator_NonCriticalFailureIsDegraded(t *testing.T) {
	agg := NewAggregator("1.4.2",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis"},
		&fakeChecker{name: "llm_gateway", err: errors.New("gateway 502")},
		&fakeChecker{name: "dispatcher"},
	)

	result := agg.Run(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
	assert.Equal(t, "error", result.Checks["llm_gateway"].Status)
	assert.Contains(t, result.Checks["llm_gateway"].Detail, "502")
}

func TestAggregator_PrimaryStoreFailureIsDown(t *testing.T) {
	agg := NewAggregator("1.4.2",
		&fakeChecker{name: "postgres", err: errors.New("connection refused")},
		&fakeChecker{name: "redis"},
		&fakeChecker{name: "llm_gateway", err: errors.New("also broken")},
	)

	result := agg.Run(context.Background())
	// down wins over degraded whatever order results arrive in.
	assert.Equal(t, StatusDown, result.Status)
}

func TestAggregator_QueueStoreFailureIsDown(t *testing.T) {
	agg := NewAggregator("1.4.2",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis", err: errors.New("no route to host")},
	)

	result := agg.Run(context.Background())
	assert.Equal(t, StatusDown, result.Status)
}

func TestAggregator_SlowProbeTimesOutWithoutStarvingOthers(t *testing.T) {
	agg := NewAggregator("1.4.2",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "llm_gateway", delay: probeTimeout + time.Second},
	)

	start := time.Now()
	result := agg.Run(context.Background())

	assert.Equal(t, StatusDegraded, result.Status)
	assert.Equal(t, "error", result.Checks["llm_gateway"].Status)
	assert.Equal(t, StatusOK, result.Checks["postgres"].Status)
	// Bounded by the probe timeout, not the probe's own delay.
	assert.Less(t, time.Since(start), probeTimeout+500*time.Millisecond)
}

func TestHTTPChecker_CredentialedRejectionIsError(t *testing.T) {
	// A 401 against a probe that sent credentials means real requests
	// would be rejected too; the dependency is not healthy.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPChecker("llm_gateway", srv.URL, "Bearer stale-key")
	err := c.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestHTTPChecker_Unauthenticated4xxIsAlive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPChecker("dispatcher", srv.URL, "")
	assert.NoError(t, c.Check(context.Background()))
}

func TestHTTPChecker_ServerErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPChecker("dispatcher", srv.URL, "")
	err := c.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func setupHealthRouter(secret string, checkers ...Checker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewAggregator("1.4.2", checkers...), secret)

	router := gin.New()
	router.GET("/health", h.Health)
	return router
}

func TestHealth_PublicShapeIsMinimal(t *testing.T) {
	// Even with everything on fire, the unauthenticated body is exactly
	// {"status":"ok"}.
	router := setupHealthRouter("hunter2",
		&fakeChecker{name: "postgres", err: errors.New("down")},
	)

	for _, header := range []string{"", "Bearer wrong-token", "Basic hunter2"} {
		req := httptest.NewRequest("GET", "/health", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, 200, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, map[string]interface{}{"status": "ok"}, body)
	}
}

func TestHealth_DetailedWithValidToken(t *testing.T) {
	router := setupHealthRouter("hunter2",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis"},
		&fakeChecker{name: "llm_gateway", err: errors.New("gateway 502")},
	)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)

	var body CompositeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusDegraded, body.Status)
	assert.Equal(t, "1.4.2", body.Version)
	assert.Len(t, body.Checks, 3)
}

func TestHealth_EmptySecretNeverDetailed(t *testing.T) {
	router := setupHealthRouter("", &fakeChecker{name: "postgres"})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"status": "ok"}, body)
}

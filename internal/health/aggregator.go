package health

import (
	"context"
	"sync"
	"time"

	"github.com/GVMBT/seo-master-sub005/internal/metrics"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Detail    string `json:"detail,omitempty"`
}

type CompositeResult struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Checks        map[string]CheckResult `json:"checks"`
}

// Aggregator runs every dependency probe in parallel and derives one
// composite status. Primary storage (postgres) or the queue store
// (redis) failing means down; anything else failing means degraded.
type Aggregator struct {
	checkers []Checker
	critical map[string]bool
	version  string
	started  time.Time
}

func NewAggregator(version string, checkers ...Checker) *Aggregator {
	return &Aggregator{
		checkers: checkers,
		critical: map[string]bool{"postgres": true, "redis": true},
		version:  version,
		started:  time.Now(),
	}
}

// Run waits for every probe, success or timeout; it never short-circuits
// because the detailed response must report each dependency.
func (a *Aggregator) Run(ctx context.Context) CompositeResult {
	type namedResult struct {
		name   string
		result CheckResult
	}

	results := make(chan namedResult, len(a.checkers))
	var wg sync.WaitGroup

	for _, checker := range a.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			start := time.Now()
			err := c.Check(probeCtx)
			latency := time.Since(start).Milliseconds()

			r := CheckResult{Status: StatusOK, LatencyMS: latency}
			if err != nil {
				r.Status = "error"
				r.Detail = err.Error()
				metrics.RecordHealthProbeFailure(c.Name())
			}
			results <- namedResult{name: c.Name(), result: r}
		}(checker)
	}

	wg.Wait()
	close(results)

	composite := CompositeResult{
		Status:        StatusOK,
		Version:       a.version,
		UptimeSeconds: int64(time.Since(a.started).Seconds()),
		Checks:        make(map[string]CheckResult, len(a.checkers)),
	}

	for r := range results {
		composite.Checks[r.name] = r.result
		if r.result.Status == StatusOK {
			continue
		}
		if a.critical[r.name] {
			composite.Status = StatusDown
		} else if composite.Status != StatusDown {
			composite.Status = StatusDegraded
		}
	}

	return composite
}

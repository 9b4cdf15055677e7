package http

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/memory"
	"github.com/volview-xnat/volviewd/internal/domain/ratelimit"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, ratelimit.Config) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("backend down")
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := memory.NewRateLimiter(time.Hour, time.Hour, discardLogger())
	env := newTestEnv(t, WithRateLimit(limiter, ratelimit.Config{Rate: 2, Burst: 2, Period: time.Hour}))
	target := "http://xnat.local/xnat/xapi/volview/config/projects/P1"

	for i := 0; i < 2; i++ {
		if rec := env.do(http.MethodGet, target, "", nil, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec := env.do(http.MethodGet, target, "", nil, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if got := testutil.ToFloat64(env.transport.Metrics().RateLimited.WithLabelValues("ip")); got != 1 {
		t.Errorf("rate_limited_total{key_type=ip} = %v, want 1", got)
	}

	// An authenticated caller has its own budget.
	if rec := env.do(http.MethodGet, target, memberKey, nil, nil); rec.Code != http.StatusOK {
		t.Errorf("member status = %d, want 200", rec.Code)
	}

	// Operational endpoints are outside the limit.
	if rec := env.do(http.MethodGet, "http://xnat.local/health", "", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", rec.Code)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	env := newTestEnv(t, WithRateLimit(failingLimiter{}, ratelimit.Config{Rate: 1}))

	rec := env.do(http.MethodGet, "http://xnat.local/xnat/xapi/volview/config/projects/P1", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when limiter errors", rec.Code)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{30 * time.Second, 30},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(ratelimit.Result{RetryAfter: tt.in}); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/volview-xnat/volviewd/internal/domain/ratelimit"
)

// RateLimiter implements ratelimit.Limiter using GCRA in memory.
// A background sweep drops idle callers so the map stays bounded.
type RateLimiter struct {
	cells map[string]time.Time // theoretical arrival time per key
	mu    sync.Mutex
	now   func() time.Time

	logger          *slog.Logger
	stopCh          chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
	maxIdle         time.Duration
}

// NewRateLimiter creates a limiter that sweeps every cleanupInterval and
// forgets keys idle for longer than maxIdle.
func NewRateLimiter(cleanupInterval, maxIdle time.Duration, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		cells:           make(map[string]time.Time),
		now:             time.Now,
		logger:          logger,
		stopCh:          make(chan struct{}),
		cleanupInterval: cleanupInterval,
		maxIdle:         maxIdle,
	}
}

// Allow records a request for key under cfg.
func (r *RateLimiter) Allow(_ context.Context, key string, cfg ratelimit.Config) (ratelimit.Result, error) {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Rate
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	emission := cfg.Period / time.Duration(cfg.Rate)
	burstOffset := time.Duration(cfg.Burst) * emission

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	tat, ok := r.cells[key]
	if !ok || tat.Before(now) {
		tat = now
	}

	newTAT := tat.Add(emission)
	allowAt := newTAT.Add(-burstOffset)
	if now.Before(allowAt) {
		return ratelimit.Result{Allowed: false, RetryAfter: allowAt.Sub(now)}, nil
	}
	r.cells[key] = newTAT

	remaining := int((burstOffset - newTAT.Sub(now)) / emission)
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Result{Allowed: true, Remaining: remaining}, nil
}

// StartCleanup runs the idle-key sweep until ctx is cancelled or Stop is
// called.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.maxIdle)
	cleaned := 0
	for key, tat := range r.cells {
		if tat.Before(cutoff) {
			delete(r.cells, key)
			cleaned++
		}
	}
	if cleaned > 0 {
		r.logger.Debug("rate limiter cleanup completed", "cleaned_keys", cleaned, "remaining_keys", len(r.cells))
	}
}

// Stop ends the sweep goroutine and waits for it. Safe to call more than once.
func (r *RateLimiter) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Size returns the number of tracked keys.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cells)
}

// Compile-time interface verification.
var _ ratelimit.Limiter = (*RateLimiter)(nil)

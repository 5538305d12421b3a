// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/storefront/storefront/pkg/errutil"
)

// Default rate limiting values.
const (
	// DefaultBurst is the number of requests a client may make in a burst.
	DefaultBurst = 5

	// DefaultRequestsPerSecond is the sustained refill rate per client.
	DefaultRequestsPerSecond = 0.2

	// DefaultCleanupInterval is how often idle clients are evicted.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultClientMaxAge is how long a client may stay idle before eviction.
	DefaultClientMaxAge = 30 * time.Minute
)

// RateLimitConfig configures the per-client limiter applied to the
// credential and reset routes.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool `koanf:"enabled"`

	// RequestsPerSecond is the sustained rate. Defaults to
	// DefaultRequestsPerSecond if zero or negative.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Burst is the bucket size. Defaults to DefaultBurst if zero or negative.
	Burst int `koanf:"burst"`

	// CleanupInterval defaults to DefaultCleanupInterval if zero.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// ClientMaxAge defaults to DefaultClientMaxAge if zero.
	ClientMaxAge time.Duration `koanf:"client_max_age"`
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP using token buckets.
// It is safe for concurrent use.
//
// The RateLimiter runs a background goroutine to evict idle clients.
// Call Close() to stop the goroutine and release resources.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	maxAge  time.Duration
	now     func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// clientGauge is nil if no registry was provided.
	clientGauge prometheus.Gauge
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// reg may be nil, in which case no gauge is registered.
func NewRateLimiter(cfg RateLimitConfig, reg prometheus.Registerer) *RateLimiter {
	return newRateLimiter(cfg, reg, time.Now)
}

func newRateLimiter(cfg RateLimitConfig, reg prometheus.Registerer, now func() time.Time) *RateLimiter {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	maxAge := cfg.ClientMaxAge
	if maxAge <= 0 {
		maxAge = DefaultClientMaxAge
	}

	rl := &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		maxAge:   maxAge,
		now:      now,
		stopChan: make(chan struct{}),
	}

	if reg != nil {
		rl.clientGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_ratelimiter_clients",
			Help: "Current number of tracked rate limiter clients",
		})
		reg.MustRegister(rl.clientGauge)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(cleanupInterval)

	return rl
}

// Allow reports whether a request from key may proceed. When it may not,
// retryAfter is the wait until the next token.
func (rl *RateLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// ClientCount returns the number of tracked clients.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Cleanup evicts clients idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxAge)
	for key, c := range rl.clients {
		if c.lastSeen.Before(threshold) {
			delete(rl.clients, key)
		}
	}

	if rl.clientGauge != nil {
		rl.clientGauge.Set(float64(len(rl.clients)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.Cleanup(rl.maxAge)
		}
	}
}

// Close stops the cleanup goroutine. It blocks until the goroutine has
// stopped and is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
	rl.wg.Wait()
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := rl.Allow(clientIP(r))
		if !allowed {
			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: fixedMessages[errutil.CodeRateLimited]})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of the remote address. Proxy headers are
// honored upstream by the RealIP middleware when configured.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows limit requests per window for each key, with the full
// limit available as a burst.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	window   time.Duration
	keyFunc  func(*http.Request) string
	stop     chan struct{}
}

// NewRateLimiter keys by client address; chi's RealIP should run first.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewKeyedRateLimiter(limit, window, func(r *http.Request) string { return r.RemoteAddr })
}

// NewDeviceRateLimiter keys by the authenticated device, falling back to the
// client address.
func NewDeviceRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewKeyedRateLimiter(limit, window, func(r *http.Request) string {
		if id := GetDeviceID(r.Context()); id != uuid.Nil {
			return "device:" + id.String()
		}
		return r.RemoteAddr
	})
}

func NewKeyedRateLimiter(limit int, window time.Duration, keyFunc func(*http.Request) string) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(max(1, limit))),
		burst:    max(1, limit),
		window:   window,
		keyFunc:  keyFunc,
		stop:     make(chan struct{}),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				rl.sweep(time.Now())
			}
		}
	}()

	return rl
}

func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.keyFunc(r)) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

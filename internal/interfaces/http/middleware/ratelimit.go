package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter allows limit requests per key in fixed windows. It guards the
// draft-from-image endpoint, whose extraction backend is metered.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*fixedWindow

	done     chan struct{}
	stopOnce sync.Once
}

type fixedWindow struct {
	start time.Time
	used  int
}

// decision is the outcome of one request against a key's window
type decision struct {
	allowed   bool
	remaining int
	retry     time.Duration
}

// NewRateLimiter starts a limiter and its eviction loop; Stop ends the loop
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*fixedWindow),
		done:    make(chan struct{}),
	}
	go rl.evictLoop(2 * window)
	return rl
}

// Stop ends the eviction loop; it is safe to call more than once
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Limit is the number of requests allowed per window
func (rl *RateLimiter) Limit() int { return rl.limit }

// Allow consumes one request for key if the window has room
func (rl *RateLimiter) Allow(key string) bool {
	return rl.take(key).allowed
}

// Remaining is how many requests key may still make in its window
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.peek(key, rl.now()).remaining
}

// RetryAfter is how long key waits for its window to reset
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.peek(key, rl.now()).retry
}

func (rl *RateLimiter) take(key string) decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &fixedWindow{start: now}
		rl.windows[key] = w
	}
	if w.used < rl.limit {
		w.used++
		return rl.peek(key, now).with(true)
	}
	return rl.peek(key, now)
}

// peek reads key's window without consuming; callers hold mu
func (rl *RateLimiter) peek(key string, now time.Time) decision {
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		return decision{remaining: rl.limit}
	}
	return decision{
		remaining: max(rl.limit-w.used, 0),
		retry:     max(rl.window-now.Sub(w.start), 0),
	}
}

func (d decision) with(allowed bool) decision {
	d.allowed = allowed
	return d
}

func (rl *RateLimiter) evictLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.windows {
				if now.Sub(w.start) > every {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// OwnerRateLimitKey keys requests by workspace owner and client IP
func OwnerRateLimitKey(c *gin.Context) string {
	if owner := GetOwnerID(c); owner != "" {
		return owner + ":" + c.ClientIP()
	}
	return c.ClientIP()
}

// RateLimit limits requests per OwnerRateLimitKey
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, OwnerRateLimitKey)
}

// RateLimitByKey limits requests per key and answers 429 with Retry-After
// in whole seconds once the window is spent
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.take(keyFunc(c))

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		if d.allowed {
			c.Next()
			return
		}

		h.Set("Retry-After", strconv.Itoa(max(int(math.Ceil(d.retry.Seconds())), 1)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRateLimited,
			"Too many scans, try again shortly",
			getRequestIDFromContext(c),
		))
	}
}

package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"freshfold/internal/handler/httperr"
	"freshfold/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

var (
	errMissingToken     = errors.New("access token missing")
	errMissingRole      = errors.New("role missing from context")
	errInsufficientRole = errors.New("insufficient role")
	errRateLimited      = errors.New("rate limit exceeded")
)

// RateLimiter counts requests per client IP in fixed windows kept in the counter store.
type RateLimiter struct {
	store   shared.CounterStore
	window  time.Duration
	enabled bool
	logger  *slog.Logger
}

func NewRateLimiter(store shared.CounterStore, window time.Duration, enabled bool, logger *slog.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{store: store, window: window, enabled: enabled, logger: logger}
}

// Limit allows limit requests per window for one route group.
func (r *RateLimiter) Limit(name string, limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.enabled || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rl:%s:%s", name, c.ClientIP())
		count, err := r.store.Incr(c.Request.Context(), key, r.window)
		if err != nil {
			// fail open
			r.logger.WarnContext(c.Request.Context(), "rate limit store unavailable",
				slog.String("key", key),
				slog.String("error", err.Error()))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(limit-count, 0), 10))
		if count > limit {
			c.Header("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			httperr.AbortWithError(c, http.StatusTooManyRequests, errRateLimited, "Too many requests", nil)
			return
		}
		c.Next()
	}
}

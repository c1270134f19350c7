package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"uniconnect.app/campus/pkg/apperror"
	"uniconnect.app/campus/pkg/response"
)

// RateLimiter allows one action per user per window, shared across
// instances through redis. A nil client disables limiting.
type RateLimiter struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRateLimiter(rdb *redis.Client, log *zap.Logger) *RateLimiter {
	return &RateLimiter{rdb: rdb, log: log}
}

func rateLimitKey(userID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID, action)
}

// Allow reports whether userID may perform action now and starts a new
// window if so.
func (l *RateLimiter) Allow(ctx context.Context, userID, action string, window time.Duration) (bool, error) {
	if l.rdb == nil || window <= 0 {
		return true, nil
	}

	wasSet, err := l.rdb.SetNX(ctx, rateLimitKey(userID, action), "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	return wasSet, nil
}

// RetryAfter returns the time left in the current window.
func (l *RateLimiter) RetryAfter(ctx context.Context, userID, action string) (time.Duration, error) {
	if l.rdb == nil {
		return 0, nil
	}
	return l.rdb.TTL(ctx, rateLimitKey(userID, action)).Result()
}

// Limit rejects a viewer's request with 429 while their window for action is
// open. A redis outage lets the request through.
func (l *RateLimiter) Limit(action string, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, err := response.GetViewer(c)
		if err != nil {
			response.ResponseError(c, l.log, err)
			c.Abort()
			return
		}

		allowed, err := l.Allow(c.Request.Context(), viewer.ID, action, window)
		if err != nil {
			l.log.Warn("rate limit check failed", zap.String("action", action), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			if ttl, err := l.RetryAfter(c.Request.Context(), viewer.ID, action); err == nil && ttl > 0 {
				c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Round(time.Second).Seconds())))
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   apperror.ErrRateLimited.Error(),
				"kind":    apperror.KindRateLimited,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

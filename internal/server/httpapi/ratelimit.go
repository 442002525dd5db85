package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = 24 * time.Hour

// RateLimiter caps how many issues one user may report per window. The
// count lives in Redis so every server instance shares it.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	prefix string
	window time.Duration
	log    logging.Logger
}

func NewRateLimiter(rdb *redis.Client, limit int, log logging.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		prefix: "civicsync:issue-limit:",
		window: rateLimitWindow,
		log:    log.With("module", "httpapi.ratelimit"),
	}
}

func (r *RateLimiter) key(userID string) string {
	return r.prefix + userID
}

// Middleware must run after authRequired.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ctxUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": common.ErrorUnauthorized.Error()})
			return
		}

		ctx := c.Request.Context()
		key := r.key(userID)

		// INCR and the expiry run in one MULTI so a counter never outlives
		// its window. NX keeps the window anchored at the first report.
		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, r.window)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			r.log.Warn(ctx, "rate limit counter failed", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("%v: rate limiter", common.ErrorBackendUnavailable)})
			return
		}
		count := incr.Val()

		if count > int64(r.limit) {
			retryAfter := ttl.Val()
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}

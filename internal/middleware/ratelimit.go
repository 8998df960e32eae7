package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waveground/backend/internal/errors"
	"github.com/waveground/backend/internal/logger"
	"github.com/waveground/backend/internal/metrics"
	"github.com/waveground/backend/internal/ratelimit"
	"github.com/waveground/backend/internal/util"
)

// RateLimitMiddleware enforces a per-client request budget for one action class.
// The bucket key combines the action name with the client IP, so one abusive
// client cannot exhaust another client's budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter, action string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", action, util.ClientIP(c))

		if !limiter.Check(key, max, window) {
			state := limiter.State(key)

			m := metrics.Get()
			m.RateLimitExceededTotal.WithLabelValues(action).Inc()
			m.RateLimitStrikes.WithLabelValues(action).Set(float64(state.Strikes))

			logger.Log.Warn("Rate limit exceeded",
				zap.String("action", action),
				zap.String("client_ip", c.ClientIP()),
				zap.Int("strikes", state.Strikes),
				zap.Int64("retry_after_ms", state.RetryAfterMs))

			util.RespondWithAPIError(c, errors.RateLimited(state.RetryAfterMs))
			c.Abort()
			return
		}

		c.Next()
	}
}

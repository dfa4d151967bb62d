package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// PaymentRateLimit throttles payment-mutating endpoints per client IP
// through the shared redis token bucket. Without redis it is a no-op.
func (s *Server) PaymentRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.paymentLimiter == nil || !s.cfg.RateLimit.Enabled {
			c.Next()
			return
		}

		key := "rushr:ratelimit:payments:" + c.ClientIP()
		result, err := s.paymentLimiter.Allow(c.Request.Context(), key, s.cfg.RateLimit.PaymentRate, s.cfg.RateLimit.PaymentBurst)
		if err != nil {
			// Redis trouble never blocks payments.
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter/time.Second)+1))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Upload submission budget per client address: bursts of ten, one slot
// refilled every six seconds.
const (
	uploadSubmitRate  = 1.0 / 6.0
	uploadSubmitBurst = 10
)

// UploadRateLimit caps statement submissions per client address.
func (s *Server) UploadRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.uploadLimiter == nil {
			c.Next()
			return
		}

		allowed, retryAfter := s.uploadLimiter.Allow(c.ClientIP())
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

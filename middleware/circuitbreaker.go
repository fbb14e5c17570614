package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/fixmonitor/breaker"
	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/metrics"
)

// HttpCircuitBreaker Gin 熔断中间件
func HttpCircuitBreaker(cfg config.CircuitBreakerConfig, m *metrics.Metrics) gin.HandlerFunc {
	b := breaker.NewBreaker(breaker.Settings{
		Name:   "HTTP-Inbound",
		Config: cfg,
	}, m)

	return func(c *gin.Context) {
		_, err := b.Execute(func() (any, error) {
			c.Next()
			if c.Writer.Status() >= 500 {
				return nil, http.ErrHandlerTimeout
			}
			return nil, nil
		})

		if err != nil && errors.Is(err, breaker.ErrServiceUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "circuit breaker open"})
		}
	}
}

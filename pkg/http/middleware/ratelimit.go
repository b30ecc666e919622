package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower decides whether one more request for key may proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests over the limiter's budget per client IP.
// skip lists route templates that are never limited, such as /metrics.
func RateLimit(l Allower, skip ...string) echo.MiddlewareFunc {
	exempt := make(map[string]bool, len(skip))
	for _, s := range skip {
		exempt[s] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil || exempt[c.Path()] || l.Allow(c.RealIP()) {
				return next(c)
			}
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": http.StatusText(http.StatusTooManyRequests),
			})
		}
	}
}

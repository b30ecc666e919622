package middleware

import (
	"time"

	"ChartScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request. 5xx responses log at error,
// requests slower than slow at warn, the rest at debug.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			took := time.Since(start)
			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", routeOf(c)),
				logger.String("remote", c.RealIP()),
				logger.Int("status", status),
				logger.Int64("bytes", c.Response().Size),
				logger.Duration("took_ms", took),
			}
			switch {
			case status >= 500:
				if err != nil {
					fields = append(fields, logger.Error(err))
				}
				log.Error("http request failed", fields...)
			case slow > 0 && took >= slow:
				log.Warn("http request slow", fields...)
			default:
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}

// routeOf prefers the registered route template to keep labels bounded.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

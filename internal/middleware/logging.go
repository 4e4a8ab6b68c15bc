package middleware

import (
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Logging writes one line per request
func Logging(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			logger.FromContext(req.Context(), l).Info("request",
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}

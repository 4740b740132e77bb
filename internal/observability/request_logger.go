package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// RequestLogger logs each request and feeds request metrics. The route
// template, not the raw path, labels metrics so ticket ids do not explode
// cardinality.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		path := c.Route().Path
		status := c.Response().StatusCode()
		metrics.RecordRequest(path, c.Method(), status, latency)

		requestID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency))
		return err
	}
}

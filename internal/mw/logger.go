package mw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/metrics"
)

// RequestLogger logs one line per request and records the HTTP metrics.
// Errors attached with c.Error are logged but never sent to the client.
func RequestLogger() gin.HandlerFunc {
	log := logging.WithComponent("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method).Observe(elapsed.Seconds())

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Debug()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("client_ip", c.ClientIP())
		if id, ok := IdentityFrom(c); ok {
			event = event.Str("subject", id.Subject)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}

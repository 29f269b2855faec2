package logging

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	return uuid.New().String()
}

// FromContext retrieves the logger from context, or the default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return Default()
}

// NewContext creates a new context carrying the logger
func NewContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// CycleContext tags a logger for one orchestrator cycle
func CycleContext(l zerolog.Logger, cycle uint64) zerolog.Logger {
	return l.With().Uint64("cycle", cycle).Str("trace_id", GenerateTraceID()).Logger()
}

// OrderContext tags a logger for order operations
func OrderContext(l zerolog.Logger, orderID int64, pair, side, orderType string) zerolog.Logger {
	return l.With().
		Int64("order_id", orderID).
		Str("pair", pair).
		Str("side", side).
		Str("order_type", orderType).
		Str("scope", "order").
		Logger()
}

// PositionContext tags a logger for position operations
func PositionContext(l zerolog.Logger, instrument, direction string, entryPrice, quantity float64) zerolog.Logger {
	return l.With().
		Str("instrument", instrument).
		Str("direction", direction).
		Float64("entry_price", entryPrice).
		Float64("quantity", quantity).
		Str("scope", "position").
		Logger()
}

// GinMiddleware logs each API request with a trace ID
func GinMiddleware(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		l := base.With().
			Str("trace_id", traceID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("scope", "http").
			Logger()
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), l))
		c.Header("X-Trace-ID", traceID)

		c.Next()

		l.Debug().
			Int("status_code", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	}
}

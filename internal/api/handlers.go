package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"roostoo-trading-bot/internal/lifecycle"
	"roostoo-trading-bot/internal/risk"
)

// handleHealth reports process uptime and the state of each dependency
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := make(map[string]string, len(s.options.Health))
	for name, check := range s.options.Health {
		if err := check(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			status = "unhealthy"
			continue
		}
		deps[name] = "healthy"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": deps,
		"uptime":       time.Since(s.startedAt).Round(time.Second).String(),
		"ws_clients":   s.hub.GetClientCount(),
	})
}

// GET /api/status
func (s *Server) handleStatus(c *gin.Context) {
	successResponse(c, s.botAPI.Status())
}

// GET /api/metrics
func (s *Server) handleMetrics(c *gin.Context) {
	successResponse(c, s.botAPI.Metrics())
}

// GET /api/metrics/history?limit=N
func (s *Server) handleHistory(c *gin.Context) {
	history := s.botAPI.History()
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	successResponse(c, history)
}

// GET /api/positions?active=true
func (s *Server) handlePositions(c *gin.Context) {
	positions := s.botAPI.Positions()
	if c.Query("active") == "true" {
		active := make([]lifecycle.PositionState, 0, len(positions))
		for _, p := range positions {
			if p.Status.IsActive() {
				active = append(active, p)
			}
		}
		positions = active
	}
	successResponse(c, positions)
}

// GET /api/trades?instrument=BTC/USD&action=exit&limit=N
func (s *Server) handleTrades(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	instrument := c.Query("instrument")
	action := risk.TradeAction(strings.ToLower(c.Query("action")))

	trades := make([]risk.TradeRecord, 0)
	for _, t := range s.botAPI.TradeLog() {
		if instrument != "" && !strings.EqualFold(t.Instrument, instrument) {
			continue
		}
		if action != "" && t.Action != action {
			continue
		}
		trades = append(trades, t)
	}
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	successResponse(c, trades)
}

// GET /api/opportunities
func (s *Server) handleOpportunities(c *gin.Context) {
	result := s.botAPI.LastScan()
	if result == nil {
		errorResponse(c, http.StatusNotFound, "no scan has completed yet")
		return
	}
	successResponse(c, result)
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		errorResponse(c, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roostoo-trading-bot/config"
	"roostoo-trading-bot/internal/auth"
	"roostoo-trading-bot/internal/bot"
	"roostoo-trading-bot/internal/events"
	"roostoo-trading-bot/internal/lifecycle"
	"roostoo-trading-bot/internal/risk"
	"roostoo-trading-bot/internal/scanner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBot struct {
	scan *scanner.ScanResult
}

func (f *fakeBot) Status() bot.Status {
	return bot.Status{Running: true, DryRun: true, Orders: bot.Stats{TotalOrders: 3, SuccessfulOrders: 2, FailedOrders: 1}}
}
func (f *fakeBot) Metrics() risk.Metrics { return risk.Metrics{SharpeRatio: 1.5, CurrentValue: 50100} }
func (f *fakeBot) History() []risk.ValueSample {
	return []risk.ValueSample{{Value: 1}, {Value: 2}, {Value: 3}}
}
func (f *fakeBot) Positions() []lifecycle.PositionState {
	return []lifecycle.PositionState{
		{Instrument: "BTC/USD", Status: lifecycle.StatusOpen},
		{Instrument: "ETH/USD", Status: lifecycle.StatusClosed},
	}
}
func (f *fakeBot) TradeLog() []risk.TradeRecord {
	return []risk.TradeRecord{
		{Instrument: "BTC/USD", Action: risk.ActionEntry},
		{Instrument: "BTC/USD", Action: risk.ActionExit, PnL: 10},
		{Instrument: "ETH/USD", Action: risk.ActionEntry},
	}
}
func (f *fakeBot) LastScan() *scanner.ScanResult { return f.scan }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func get(t *testing.T, h http.Handler, path string, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Code == http.StatusOK && strings.HasPrefix(path, "/api") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func newTestServer(opts Options, b BotAPI, bus *events.EventBus) *Server {
	return NewServer(opts, b, bus, zerolog.Nop())
}

func TestReadEndpoints(t *testing.T) {
	s := newTestServer(Options{}, &fakeBot{}, nil)
	h := s.Handler()

	w, env := get(t, h, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	var status bot.Status
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.Orders.FailedOrders)

	_, env = get(t, h, "/api/metrics")
	var m risk.Metrics
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, 1.5, m.SharpeRatio)

	_, env = get(t, h, "/api/metrics/history?limit=2")
	var history []risk.ValueSample
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, 3.0, history[1].Value)

	_, env = get(t, h, "/api/positions?active=true")
	var positions []lifecycle.PositionState
	require.NoError(t, json.Unmarshal(env.Data, &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "BTC/USD", positions[0].Instrument)

	_, env = get(t, h, "/api/trades?instrument=btc/usd&action=exit")
	var trades []risk.TradeRecord
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, 10.0, trades[0].PnL)

	w, _ = get(t, h, "/api/trades?limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpportunities(t *testing.T) {
	b := &fakeBot{}
	h := newTestServer(Options{}, b, nil).Handler()

	w, _ := get(t, h, "/api/opportunities")
	assert.Equal(t, http.StatusNotFound, w.Code)

	b.scan = &scanner.ScanResult{ScanID: "abc", Results: []scanner.Opportunity{{Instrument: "SOL/USD", BestScore: 88}}}
	w, env := get(t, h, "/api/opportunities")
	require.Equal(t, http.StatusOK, w.Code)
	var result scanner.ScanResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "abc", result.ScanID)
	assert.Equal(t, 88.0, result.Results[0].BestScore)
}

func TestHealthReportsDependencies(t *testing.T) {
	opts := Options{Health: map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	}}
	w, _ := get(t, newTestServer(opts, &fakeBot{}, nil).Handler(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	opts.Health["redis"] = func(ctx context.Context) error { return errors.New("down") }
	w, _ = get(t, newTestServer(opts, &fakeBot{}, nil).Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy: down")
}

func TestAuthProtectsAPI(t *testing.T) {
	jwtm := auth.NewJWTManager("secret", time.Hour)
	h := newTestServer(Options{JWT: jwtm}, &fakeBot{}, nil).Handler()

	w, _ := get(t, h, "/api/status")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	token, err := jwtm.GenerateAccessToken(auth.OperatorClaims{Operator: "ops"})
	require.NoError(t, err)
	w, _ = get(t, h, "/api/status", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	h := newTestServer(Options{RequestsPerMinute: 1}, &fakeBot{}, nil).Handler()
	w, _ := get(t, h, "/api/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = get(t, h, "/api/metrics")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSConfig(t *testing.T) {
	assert.True(t, corsConfig("*").AllowAllOrigins)
	c := corsConfig("http://a.example, http://b.example")
	assert.False(t, c.AllowAllOrigins)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, c.AllowOrigins)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	bus := events.NewEventBus()
	s := newTestServer(Options{Config: config.ServerConfig{}}, &fakeBot{}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var greeting map[string]interface{}
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "CONNECTED", greeting["type"])

	bus.PublishTradeOpened("BTC/USD", "bullish", 100, 1, 95, 110)

	var event events.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, events.EventTradeOpened, event.Type)
	assert.Equal(t, "BTC/USD", event.Data["instrument"])
}

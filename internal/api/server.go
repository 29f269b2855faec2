package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"roostoo-trading-bot/config"
	"roostoo-trading-bot/internal/auth"
	"roostoo-trading-bot/internal/bot"
	"roostoo-trading-bot/internal/events"
	"roostoo-trading-bot/internal/lifecycle"
	"roostoo-trading-bot/internal/logging"
	"roostoo-trading-bot/internal/risk"
	"roostoo-trading-bot/internal/scanner"
)

// RateLimiter provides simple in-memory rate limiting per client
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// BotAPI is the read-only view of the bot served over HTTP
type BotAPI interface {
	Status() bot.Status
	Metrics() risk.Metrics
	History() []risk.ValueSample
	Positions() []lifecycle.PositionState
	TradeLog() []risk.TradeRecord
	LastScan() *scanner.ScanResult
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Options configures the server
type Options struct {
	Config config.ServerConfig
	// JWT enables bearer auth on /api and /ws when set
	JWT *auth.JWTManager
	// OperatorPasswordHash enables POST /api/auth/login
	OperatorPasswordHash string
	Health               map[string]HealthCheck
	RequestsPerMinute    int
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	botAPI      BotAPI
	hub         *WSHub
	config      config.ServerConfig
	options     Options
	rateLimiter *RateLimiter
	startedAt   time.Time
	logger      zerolog.Logger
}

// NewServer creates a new API server. eventBus may be nil, in which case /ws
// only delivers the connection greeting.
func NewServer(opts Options, botAPI BotAPI, eventBus *events.EventBus, logger zerolog.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware(logger))
	router.Use(cors.New(corsConfig(opts.Config.AllowedOrigins)))

	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 120
	}

	s := &Server{
		router:      router,
		botAPI:      botAPI,
		hub:         NewWSHub(logger),
		config:      opts.Config,
		options:     opts,
		rateLimiter: NewRateLimiter(opts.RequestsPerMinute, time.Minute),
		startedAt:   time.Now(),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	if eventBus != nil {
		eventBus.SubscribeAll(s.hub.BroadcastEvent)
	}

	s.setupRoutes()
	return s
}

func corsConfig(origins string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"}
	c.ExposeHeaders = []string{"Content-Length", "X-Trace-ID"}

	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 || (len(list) == 1 && list[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = list
	c.AllowCredentials = true
	return c
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// rateLimitMiddleware limits requests per client address
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests, please slow down.",
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())

	if s.options.JWT != nil {
		auth.NewHandlers(s.options.JWT, s.options.OperatorPasswordHash).RegisterRoutes(api)
	}

	protected := api.Group("")
	ws := s.router.Group("")
	if s.options.JWT != nil {
		protected.Use(auth.Middleware(s.options.JWT))
		ws.Use(auth.Middleware(s.options.JWT))
	}

	protected.GET("/status", s.handleStatus)
	protected.GET("/metrics", s.handleMetrics)
	protected.GET("/metrics/history", s.handleHistory)
	protected.GET("/positions", s.handlePositions)
	protected.GET("/trades", s.handleTrades)
	protected.GET("/opportunities", s.handleOpportunities)

	ws.GET("/ws", s.handleWebSocket)
}

// Start runs the websocket hub and serves HTTP until Shutdown
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  seconds(s.config.ReadTimeout, 15),
		WriteTimeout: seconds(s.config.WriteTimeout, 15),
		IdleTimeout:  60 * time.Second,
	}

	go s.hub.Run(ctx)

	log.Printf("[API] Starting HTTP server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[API] Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"roostoo-trading-bot/config"
	"roostoo-trading-bot/internal/api"
	"roostoo-trading-bot/internal/auth"
	"roostoo-trading-bot/internal/bot"
	"roostoo-trading-bot/internal/cache"
	"roostoo-trading-bot/internal/circuit"
	"roostoo-trading-bot/internal/database"
	"roostoo-trading-bot/internal/events"
	"roostoo-trading-bot/internal/lifecycle"
	"roostoo-trading-bot/internal/logging"
	"roostoo-trading-bot/internal/market"
	"roostoo-trading-bot/internal/marketdata"
	"roostoo-trading-bot/internal/notification"
	"roostoo-trading-bot/internal/report"
	"roostoo-trading-bot/internal/risk"
	"roostoo-trading-bot/internal/roostoo"
	"roostoo-trading-bot/internal/scanner"
	"roostoo-trading-bot/internal/strategy"
	"roostoo-trading-bot/internal/vault"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop and reporting API",
	Long: `Run loads the configuration, resolves credentials (optionally from Vault),
and drives the position check and scan cadences until interrupted.

Example:
  roostoo-bot run -c config.yaml
  TRADING_DRY_RUN=true roostoo-bot run`,
	RunE: runBot,
}

var runDryRun bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "paper trade against the local mock exchange")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runDryRun {
		cfg.RoostooConfig.DryRun = true
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credentials from Vault fill whatever the file and environment left empty
	vaultClient, err := vault.NewClient(cfg.VaultConfig, logger)
	if err != nil {
		return err
	}
	if err := vaultClient.Apply(ctx, cfg); err != nil {
		return fmt.Errorf("load credentials from vault: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	health := map[string]api.HealthCheck{}

	// Cache
	cacheService := cache.NewCacheService(cfg.RedisConfig)
	defer cacheService.Close()
	if cfg.RedisConfig.Enabled {
		health["redis"] = func(ctx context.Context) error {
			if !cacheService.IsHealthy() {
				return errors.New("redis unavailable, serving from memory")
			}
			return nil
		}
	}
	if vaultClient.IsEnabled() {
		health["vault"] = vaultClient.Health
	}

	// Exchange and market data
	exchange, live := newExchange(cfg, logger)
	candles, err := newCandleProvider(cfg, cacheService, logger)
	if err != nil {
		return err
	}
	store := market.NewCandleStore(cfg.TradingConfig.CandleHistorySize)
	var prices marketdata.PriceSource = exchange
	if paper, ok := exchange.(*roostoo.MockClient); ok && live == nil {
		prices = marketdata.NewCloseQuotes(store, cfg.TradingConfig.PrimaryTimeframe, paper)
		log.Println("[PAPER] No exchange credentials, quoting from candle closes")
	}
	feed := marketdata.NewFeed(candles, prices, store, logger)

	// Strategy and scanner
	strategyConfig := strategy.Config{
		MinRiskReward:     cfg.StrategyConfig.MinRRRatio,
		CHOCHLookback:     cfg.StrategyConfig.CHOCHLookback,
		TrendLookback:     cfg.StrategyConfig.TrendLookback,
		ATRPeriod:         cfg.StrategyConfig.ATRPeriod,
		ATRStopMultiplier: cfg.StrategyConfig.ATRStopMultiplier,
	}
	detector := strategy.NewPatternDetector(strategyConfig)
	evaluator := strategy.NewSetupEvaluator(detector, strategyConfig)
	opportunityScanner := scanner.NewScanner(feed, detector, evaluator, scanner.Config{
		Timeframe:             cfg.TradingConfig.PrimaryTimeframe,
		ConfirmationTimeframe: cfg.TradingConfig.ConfirmationTimeframe,
		CandleLimit:           cfg.TradingConfig.CandleHistorySize,
		MinCandles:            cfg.MarketDataConfig.MinCandles,
		MinConfidence:         cfg.StrategyConfig.MinSetupConfidence,
		MinPrice:              cfg.StrategyConfig.MinPrice,
		MinVolume:             cfg.StrategyConfig.MinVolume,
	}, logger)

	// Risk
	portfolio := risk.NewPortfolioManager(risk.Config{
		InitialCapital:      cfg.RiskConfig.InitialCapital,
		RiskPerTrade:        cfg.RiskConfig.RiskPerTrade,
		MaxPositionFraction: cfg.RiskConfig.MaxPositionFraction,
		MaxOpenPositions:    cfg.RiskConfig.MaxOpenPositions,
		MaxDrawdown:         cfg.RiskConfig.MaxDrawdown,
		CommissionRate:      cfg.RiskConfig.CommissionRate,
	}, logger)

	eventBus := events.NewEventBus()
	breaker := circuit.NewCircuitBreaker(circuit.Config{
		Enabled:              cfg.CircuitConfig.Enabled,
		MaxConsecutiveLosses: cfg.CircuitConfig.MaxConsecutiveLosses,
		CooldownMinutes:      cfg.CircuitConfig.CooldownMinutes,
	})
	breaker.OnTrip(eventBus.PublishCircuitTripped)

	// Journals
	journals := []database.Journal{
		database.NewFileJournal(cfg.JournalConfig.TradeLogFile, cfg.JournalConfig.MetricsFile),
	}
	if cfg.DatabaseConfig.Enabled {
		pg, err := openPostgresJournal(ctx, cfg.DatabaseConfig)
		if err != nil {
			return err
		}
		journals = append(journals, pg)
		health["postgres"] = pg.HealthCheck
	}
	journal := database.NewMultiJournal(logger, journals...)
	defer journal.Close()

	// Notifications
	notifier := notification.NewManagerFromConfig(cfg.NotificationConfig, logger)
	if notifier.Enabled() {
		notifier.Attach(eventBus)
	}

	orchestrator, err := bot.NewOrchestrator(bot.Deps{
		Exchange:  exchange,
		Prices:    feed,
		Scanner:   opportunityScanner,
		Lifecycle: lifecycle.NewController(logger),
		Portfolio: portfolio,
		Breaker:   breaker,
		Journal:   journal,
		Events:    eventBus,
	}, bot.Config{
		Pairs:                 cfg.TradingConfig.Pairs,
		QuoteCurrency:         cfg.TradingConfig.QuoteCurrency,
		ScanInterval:          cfg.ScanInterval(),
		PositionCheckInterval: cfg.PositionCheckInterval(),
		PollInterval:          cfg.PollInterval(),
		DryRun:                cfg.RoostooConfig.DryRun,
	}, logger)
	if err != nil {
		return err
	}

	// Periodic metrics report
	if cfg.ReportConfig.Enabled {
		var reportNotifier report.Notifier
		if notifier.Enabled() {
			reportNotifier = notifier
		}
		reporter, err := report.New(cfg.ReportConfig.Schedule, portfolio, journal, reportNotifier, logger)
		if err != nil {
			return err
		}
		reporter.Start()
		defer func() {
			reporter.Stop()
			reporter.RunNow()
		}()
	}

	// Reporting API
	var server *api.Server
	if cfg.ServerConfig.Enabled {
		opts := api.Options{
			Config: cfg.ServerConfig,
			Health: health,
		}
		if cfg.AuthConfig.Enabled {
			opts.JWT = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
			opts.OperatorPasswordHash = cfg.AuthConfig.OperatorPassword
		}
		server = api.NewServer(opts, orchestrator, eventBus, logger)
		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("API server stopped")
			}
		}()
		log.Printf("Reporting API available at http://%s:%d", cfg.ServerConfig.Host, cfg.ServerConfig.Port)
	}

	log.Println("Starting Roostoo trading bot...")
	log.Printf("Dry run mode: %v", cfg.RoostooConfig.DryRun)

	runErr := orchestrator.Run(ctx)

	log.Println("Shutting down...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
		cancel()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	log.Println("Shutdown complete")
	return nil
}

// newExchange returns the live client, or a paper exchange when dry run is
// set. The paper exchange quotes from the live API when credentials exist.
// live is nil without credentials.
func newExchange(cfg *config.Config, logger zerolog.Logger) (exchange roostoo.Exchange, live *roostoo.Client) {
	rc := cfg.RoostooConfig
	timeout := time.Duration(rc.Timeout) * time.Second

	if rc.APIKey != "" && rc.SecretKey != "" {
		live = roostoo.NewClient(rc.APIKey, rc.SecretKey, rc.BaseURL, timeout, logger)
	}
	if !rc.DryRun {
		return live, live
	}

	var upstream roostoo.Exchange
	if live != nil {
		upstream = live
	}
	return roostoo.NewMockClient(upstream, cfg.TradingConfig.QuoteCurrency, cfg.RiskConfig.InitialCapital), live
}

// newCandleProvider builds the provider fallback chain in configured order,
// each provider behind the shared cache
func newCandleProvider(cfg *config.Config, c *cache.CacheService, logger zerolog.Logger) (*marketdata.Chain, error) {
	md := cfg.MarketDataConfig
	timeout := time.Duration(md.Timeout) * time.Second
	ttl := time.Duration(md.CacheTTL) * time.Second

	var providers []marketdata.CandleProvider
	for _, name := range md.Providers {
		var p marketdata.CandleProvider
		switch name {
		case "horus":
			p = marketdata.NewHorusProvider(md.HorusAPIKey, md.HorusBaseURL, timeout, md.RetryLimit, logger)
		case "coingecko":
			p = marketdata.NewCoinGeckoProvider(md.CoinGeckoBaseURL, timeout, logger)
		default:
			return nil, fmt.Errorf("unknown market data provider %q", name)
		}
		providers = append(providers, marketdata.NewCachedProvider(p, c, ttl, logger))
	}
	return marketdata.NewChain(md.MinCandles, logger, providers...), nil
}

func openPostgresJournal(ctx context.Context, dc config.DatabaseConfig) (*database.PostgresJournal, error) {
	db, err := database.NewDB(ctx, database.Config{
		Host:     dc.Host,
		Port:     dc.Port,
		User:     dc.User,
		Password: dc.Password,
		Database: dc.Database,
		SSLMode:  dc.SSLMode,
		MaxConns: int32(dc.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return database.NewPostgresJournal(db), nil
}

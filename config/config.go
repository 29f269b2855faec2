package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no path is given
const DefaultConfigFile = "config.json"

type Config struct {
	RoostooConfig      RoostooConfig      `json:"roostoo" yaml:"roostoo"`
	MarketDataConfig   MarketDataConfig   `json:"market_data" yaml:"market_data"`
	TradingConfig      TradingConfig      `json:"trading" yaml:"trading"`
	StrategyConfig     StrategyConfig     `json:"strategy" yaml:"strategy"`
	RiskConfig         RiskConfig         `json:"risk" yaml:"risk"`
	CircuitConfig      CircuitConfig      `json:"circuit_breaker" yaml:"circuit_breaker"`
	JournalConfig      JournalConfig      `json:"journal" yaml:"journal"`
	DatabaseConfig     DatabaseConfig     `json:"database" yaml:"database"`
	RedisConfig        RedisConfig        `json:"redis" yaml:"redis"`
	ServerConfig       ServerConfig       `json:"server" yaml:"server"`
	AuthConfig         AuthConfig         `json:"auth" yaml:"auth"`
	VaultConfig        VaultConfig        `json:"vault" yaml:"vault"`
	NotificationConfig NotificationConfig `json:"notification" yaml:"notification"`
	ReportConfig       ReportConfig       `json:"report" yaml:"report"`
	LoggingConfig      LoggingConfig      `json:"logging" yaml:"logging"`
}

// RoostooConfig holds exchange connection settings
type RoostooConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	APIKey    string `json:"api_key" yaml:"api_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Timeout   int    `json:"timeout" yaml:"timeout"` // Seconds
	DryRun    bool   `json:"dry_run" yaml:"dry_run"` // Paper trade against a local mock exchange
}

// MarketDataConfig holds candle provider settings
type MarketDataConfig struct {
	Providers        []string `json:"providers" yaml:"providers"` // Tried in order: horus, coingecko
	HorusAPIKey      string   `json:"horus_api_key" yaml:"horus_api_key"`
	HorusBaseURL     string   `json:"horus_base_url" yaml:"horus_base_url"`
	CoinGeckoBaseURL string   `json:"coingecko_base_url" yaml:"coingecko_base_url"`
	Timeout          int      `json:"timeout" yaml:"timeout"`     // Seconds
	RetryLimit       int      `json:"retry_limit" yaml:"retry_limit"`
	CacheTTL         int      `json:"cache_ttl" yaml:"cache_ttl"` // Seconds
	MinCandles       int      `json:"min_candles" yaml:"min_candles"`
}

// TradingConfig holds universe and cadence settings
type TradingConfig struct {
	Pairs                 []string `json:"pairs" yaml:"pairs"` // Empty means every tradeable exchange pair
	QuoteCurrency         string   `json:"quote_currency" yaml:"quote_currency"`
	PrimaryTimeframe      string   `json:"primary_timeframe" yaml:"primary_timeframe"`
	ConfirmationTimeframe string   `json:"confirmation_timeframe" yaml:"confirmation_timeframe"`
	CandleHistorySize     int      `json:"candle_history_size" yaml:"candle_history_size"`
	ScanInterval          int      `json:"scan_interval" yaml:"scan_interval"`                     // Seconds
	PositionCheckInterval int      `json:"position_check_interval" yaml:"position_check_interval"` // Seconds
	PollInterval          int      `json:"poll_interval" yaml:"poll_interval"`                     // Seconds
}

// StrategyConfig holds setup evaluation settings
type StrategyConfig struct {
	MinRRRatio         float64 `json:"min_rr_ratio" yaml:"min_rr_ratio"`
	MinSetupConfidence float64 `json:"min_setup_confidence" yaml:"min_setup_confidence"`
	CHOCHLookback      int     `json:"choch_lookback" yaml:"choch_lookback"`
	TrendLookback      int     `json:"trend_lookback" yaml:"trend_lookback"`
	ATRPeriod          int     `json:"atr_period" yaml:"atr_period"`
	ATRStopMultiplier  float64 `json:"atr_stop_multiplier" yaml:"atr_stop_multiplier"`
	MinPrice           float64 `json:"min_price" yaml:"min_price"`
	MinVolume          float64 `json:"min_volume" yaml:"min_volume"`
}

// RiskConfig holds portfolio risk settings
type RiskConfig struct {
	InitialCapital      float64 `json:"initial_capital" yaml:"initial_capital"`
	RiskPerTrade        float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxPositionFraction float64 `json:"max_position_fraction" yaml:"max_position_fraction"`
	MaxOpenPositions    int     `json:"max_open_positions" yaml:"max_open_positions"`
	MaxDrawdown         float64 `json:"max_drawdown" yaml:"max_drawdown"`
	CommissionRate      float64 `json:"commission_rate" yaml:"commission_rate"`
}

type CircuitConfig struct {
	Enabled              bool `json:"enabled" yaml:"enabled"`
	MaxConsecutiveLosses int  `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`
	CooldownMinutes      int  `json:"cooldown_minutes" yaml:"cooldown_minutes"`
}

// JournalConfig holds trade log file locations
type JournalConfig struct {
	TradeLogFile string `json:"trade_log_file" yaml:"trade_log_file"`
	MetricsFile  string `json:"metrics_file" yaml:"metrics_file"`
}

// DatabaseConfig holds PostgreSQL journal settings
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
	MaxConns int    `json:"max_conns" yaml:"max_conns"`
}

// RedisConfig holds Redis configuration for candle caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	PoolSize int    `json:"pool_size" yaml:"pool_size"`
}

// ServerConfig holds reporting API configuration
type ServerConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	Port            int    `json:"port" yaml:"port"`
	Host            string `json:"host" yaml:"host"`
	AllowedOrigins  string `json:"allowed_origins" yaml:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout" yaml:"read_timeout"`       // Seconds
	WriteTimeout    int    `json:"write_timeout" yaml:"write_timeout"`     // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	Enabled             bool          `json:"enabled" yaml:"enabled"`
	JWTSecret           string        `json:"jwt_secret" yaml:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration" yaml:"access_token_duration"`
	OperatorPassword    string        `json:"operator_password_hash" yaml:"operator_password_hash"` // bcrypt hash
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Address    string `json:"address" yaml:"address"`
	Token      string `json:"token" yaml:"token"`
	MountPath  string `json:"mount_path" yaml:"mount_path"`   // KV secrets engine mount path
	SecretPath string `json:"secret_path" yaml:"secret_path"` // Path of the credential secret
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled" yaml:"enabled"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

// ReportConfig holds the periodic metrics report schedule
type ReportConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Schedule string `json:"schedule" yaml:"schedule"` // cron spec, e.g. "@every 1h"
}

type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`             // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output" yaml:"output"`           // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format" yaml:"json_format"` // Output as JSON
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		RoostooConfig: RoostooConfig{
			BaseURL: "https://mock-api.roostoo.com",
			Timeout: 15,
		},
		MarketDataConfig: MarketDataConfig{
			Providers:        []string{"horus", "coingecko"},
			HorusBaseURL:     "https://api.horusdata.xyz/v1",
			CoinGeckoBaseURL: "https://api.coingecko.com/api/v3",
			Timeout:          15,
			RetryLimit:       3,
			CacheTTL:         60,
			MinCandles:       30,
		},
		TradingConfig: TradingConfig{
			QuoteCurrency:         "USD",
			PrimaryTimeframe:      "15m",
			ConfirmationTimeframe: "1h",
			CandleHistorySize:     100,
			ScanInterval:          300,
			PositionCheckInterval: 60,
			PollInterval:          10,
		},
		StrategyConfig: StrategyConfig{
			MinRRRatio:         2.0,
			MinSetupConfidence: 80,
			CHOCHLookback:      10,
			TrendLookback:      20,
			ATRPeriod:          14,
			ATRStopMultiplier:  0.5,
			MinPrice:           0.0001,
			MinVolume:          100000,
		},
		RiskConfig: RiskConfig{
			InitialCapital:      50000,
			RiskPerTrade:        0.02,
			MaxPositionFraction: 0.5,
			MaxOpenPositions:    1,
			MaxDrawdown:         0.15,
			CommissionRate:      0.001,
		},
		CircuitConfig: CircuitConfig{
			Enabled:              true,
			MaxConsecutiveLosses: 3,
			CooldownMinutes:      60,
		},
		JournalConfig: JournalConfig{
			TradeLogFile: "trades.json",
			MetricsFile:  "portfolio_metrics.json",
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "trader",
			Database: "roostoo_bot",
			SSLMode:  "disable",
			MaxConns: 5,
		},
		RedisConfig: RedisConfig{
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		ServerConfig: ServerConfig{
			Enabled:         true,
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		AuthConfig: AuthConfig{
			AccessTokenDuration: 24 * time.Hour,
		},
		VaultConfig: VaultConfig{
			Address:    "http://localhost:8200",
			MountPath:  "secret",
			SecretPath: "roostoo-bot/credentials",
		},
		ReportConfig: ReportConfig{
			Enabled:  true,
			Schedule: "@every 1h",
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: false,
		},
	}
}

// Load reads .env, then the config file (JSON or YAML by extension), then
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = getEnvOrDefault("CONFIG_FILE", DefaultConfigFile)
	}

	cfg, err := loadFromFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}

	// Environment variables take precedence
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Exchange
	cfg.RoostooConfig.BaseURL = getEnvOrDefault("ROOSTOO_BASE_URL", cfg.RoostooConfig.BaseURL)
	cfg.RoostooConfig.APIKey = getEnvOrDefault("ROOSTOO_API_KEY", cfg.RoostooConfig.APIKey)
	cfg.RoostooConfig.SecretKey = getEnvOrDefault("ROOSTOO_SECRET_KEY", cfg.RoostooConfig.SecretKey)
	cfg.RoostooConfig.Timeout = getEnvIntOrDefault("ROOSTOO_TIMEOUT", cfg.RoostooConfig.Timeout)
	cfg.RoostooConfig.DryRun = getEnvBoolOrDefault("TRADING_DRY_RUN", cfg.RoostooConfig.DryRun)

	// Market data
	cfg.MarketDataConfig.HorusAPIKey = getEnvOrDefault("HORUS_API_KEY", cfg.MarketDataConfig.HorusAPIKey)
	cfg.MarketDataConfig.HorusBaseURL = getEnvOrDefault("HORUS_BASE_URL", cfg.MarketDataConfig.HorusBaseURL)
	cfg.MarketDataConfig.CoinGeckoBaseURL = getEnvOrDefault("COINGECKO_BASE_URL", cfg.MarketDataConfig.CoinGeckoBaseURL)
	cfg.MarketDataConfig.RetryLimit = getEnvIntOrDefault("HORUS_RETRY_LIMIT", cfg.MarketDataConfig.RetryLimit)
	cfg.MarketDataConfig.CacheTTL = getEnvIntOrDefault("MARKET_DATA_CACHE_TTL", cfg.MarketDataConfig.CacheTTL)
	if providers := os.Getenv("MARKET_DATA_PROVIDERS"); providers != "" {
		cfg.MarketDataConfig.Providers = splitList(providers)
	}

	// Trading
	if pairs := os.Getenv("TRADING_PAIRS"); pairs != "" {
		cfg.TradingConfig.Pairs = splitList(pairs)
	}
	cfg.TradingConfig.PrimaryTimeframe = getEnvOrDefault("PRIMARY_TIMEFRAME", cfg.TradingConfig.PrimaryTimeframe)
	cfg.TradingConfig.ConfirmationTimeframe = getEnvOrDefault("CONFIRMATION_TIMEFRAME", cfg.TradingConfig.ConfirmationTimeframe)
	cfg.TradingConfig.ScanInterval = getEnvIntOrDefault("SCAN_INTERVAL", cfg.TradingConfig.ScanInterval)
	cfg.TradingConfig.PositionCheckInterval = getEnvIntOrDefault("POSITION_CHECK_INTERVAL", cfg.TradingConfig.PositionCheckInterval)

	// Strategy
	cfg.StrategyConfig.MinRRRatio = getEnvFloatOrDefault("MIN_RR_RATIO", cfg.StrategyConfig.MinRRRatio)
	cfg.StrategyConfig.MinSetupConfidence = getEnvFloatOrDefault("MIN_SETUP_CONFIDENCE", cfg.StrategyConfig.MinSetupConfidence)

	// Risk
	cfg.RiskConfig.InitialCapital = getEnvFloatOrDefault("INITIAL_CAPITAL", cfg.RiskConfig.InitialCapital)
	cfg.RiskConfig.RiskPerTrade = getEnvFloatOrDefault("GLOBAL_PORTFOLIO_RISK", cfg.RiskConfig.RiskPerTrade)
	cfg.RiskConfig.MaxOpenPositions = getEnvIntOrDefault("MAX_OPEN_POSITIONS", cfg.RiskConfig.MaxOpenPositions)
	cfg.RiskConfig.MaxDrawdown = getEnvFloatOrDefault("MAX_PORTFOLIO_DRAWDOWN", cfg.RiskConfig.MaxDrawdown)

	// Journal and database
	cfg.JournalConfig.TradeLogFile = getEnvOrDefault("TRADE_LOG_FILE", cfg.JournalConfig.TradeLogFile)
	cfg.JournalConfig.MetricsFile = getEnvOrDefault("METRICS_FILE", cfg.JournalConfig.MetricsFile)
	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DATABASE_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Server and auth
	cfg.ServerConfig.Enabled = getEnvBoolOrDefault("WEB_ENABLED", cfg.ServerConfig.Enabled)
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)
	cfg.AuthConfig.Enabled = getEnvBoolOrDefault("AUTH_ENABLED", cfg.AuthConfig.Enabled)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", cfg.AuthConfig.AccessTokenDuration)
	cfg.AuthConfig.OperatorPassword = getEnvOrDefault("AUTH_OPERATOR_PASSWORD_HASH", cfg.AuthConfig.OperatorPassword)

	// Vault
	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	// Notifications
	cfg.NotificationConfig.Enabled = getEnvBoolOrDefault("NOTIFICATIONS_ENABLED", cfg.NotificationConfig.Enabled)
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Report and logging
	cfg.ReportConfig.Schedule = getEnvOrDefault("REPORT_SCHEDULE", cfg.ReportConfig.Schedule)
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
}

// Validate checks the settings required before the first cycle
func (c *Config) Validate() error {
	var problems []string

	if c.RoostooConfig.BaseURL == "" {
		problems = append(problems, "roostoo.base_url is required")
	}
	if !c.RoostooConfig.DryRun && (c.RoostooConfig.APIKey == "" || c.RoostooConfig.SecretKey == "") {
		problems = append(problems, "ROOSTOO_API_KEY and ROOSTOO_SECRET_KEY are required unless dry_run is set")
	}
	if c.RoostooConfig.DryRun && c.RoostooConfig.APIKey == "" && len(c.TradingConfig.Pairs) == 0 {
		problems = append(problems, "trading.pairs is required when dry running without exchange credentials")
	}
	if len(c.MarketDataConfig.Providers) == 0 {
		problems = append(problems, "market_data.providers must list at least one provider")
	}
	for _, p := range c.MarketDataConfig.Providers {
		if p == "horus" && c.MarketDataConfig.HorusAPIKey == "" {
			problems = append(problems, "HORUS_API_KEY is required when the horus provider is enabled")
		}
	}
	if c.TradingConfig.ScanInterval <= 0 || c.TradingConfig.PositionCheckInterval <= 0 {
		problems = append(problems, "scan and position check intervals must be positive")
	}
	if c.RiskConfig.InitialCapital <= 0 {
		problems = append(problems, "risk.initial_capital must be positive")
	}
	if c.RiskConfig.MaxOpenPositions <= 0 {
		problems = append(problems, "risk.max_open_positions must be positive")
	}
	if c.AuthConfig.Enabled && c.AuthConfig.JWTSecret == "" {
		problems = append(problems, "AUTH_JWT_SECRET is required when auth is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ScanInterval returns the scan cadence
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.TradingConfig.ScanInterval) * time.Second
}

// PositionCheckInterval returns the position check cadence
func (c *Config) PositionCheckInterval() time.Duration {
	return time.Duration(c.TradingConfig.PositionCheckInterval) * time.Second
}

// PollInterval returns the loop tick, never longer than the shortest cadence
func (c *Config) PollInterval() time.Duration {
	poll := time.Duration(c.TradingConfig.PollInterval) * time.Second
	if poll <= 0 || poll > c.PositionCheckInterval() {
		poll = c.PositionCheckInterval()
	}
	return poll
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Unset fields keep their defaults
	config := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, config)
	default:
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig writes the default configuration with placeholder credentials
func GenerateSampleConfig(filename string) error {
	config := Default()
	config.RoostooConfig.APIKey = "your_api_key_here"
	config.RoostooConfig.SecretKey = "your_secret_key_here"
	config.RoostooConfig.DryRun = true
	config.MarketDataConfig.HorusAPIKey = "your_horus_key_here"
	config.TradingConfig.Pairs = []string{"BTC/USD", "ETH/USD", "SOL/USD"}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/config"
	"roostoo-trading-bot/internal/events"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifySignal     NotificationType = "signal"
	NotifyTradeOpen  NotificationType = "trade_open"
	NotifyTradeClose NotificationType = "trade_close"
	NotifyHalt       NotificationType = "halt"
	NotifyError      NotificationType = "error"
	NotifyReport     NotificationType = "report"
)

// Notification represents a notification message
type Notification struct {
	Type       NotificationType
	Title      string
	Message    string
	Instrument string
	Price      float64
	PnL        float64
	PnLPercent float64
	Timestamp  time.Time
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(ctx context.Context, notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans notifications out to every enabled provider
type Manager struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewManager creates a new notification manager
func NewManager(logger zerolog.Logger, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		timeout:   10 * time.Second,
		logger:    logger.With().Str("component", "notification").Logger(),
	}
}

// NewManagerFromConfig builds a manager with the configured providers. A
// disabled section yields a manager that delivers nothing.
func NewManagerFromConfig(cfg config.NotificationConfig, logger zerolog.Logger) *Manager {
	if !cfg.Enabled {
		return NewManager(logger)
	}
	return NewManager(logger,
		NewTelegramNotifier(TelegramConfig{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			Enabled:  cfg.Telegram.Enabled,
		}),
		NewDiscordNotifier(DiscordConfig{
			WebhookURL: cfg.Discord.WebhookURL,
			Enabled:    cfg.Discord.Enabled,
		}),
	)
}

// Enabled reports whether any provider will deliver
func (m *Manager) Enabled() bool {
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			return true
		}
	}
	return false
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(ctx context.Context, notification *Notification) error {
	var errs []error
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		if err := n.Send(ctx, notification); err != nil {
			m.logger.Warn().Err(err).Str("provider", n.Name()).Msg("Notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Attach forwards trade lifecycle events from the bus
func (m *Manager) Attach(bus *events.EventBus) {
	handler := func(e events.Event) {
		n := FromEvent(e)
		if n == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		_ = m.Send(ctx, n)
	}

	for _, t := range []events.EventType{
		events.EventSignalGenerated,
		events.EventTradeOpened,
		events.EventTradeClosed,
		events.EventCircuitTripped,
		events.EventOrderFailed,
	} {
		bus.Subscribe(t, handler)
	}
}

// FromEvent renders a bus event as a notification, or nil when the event is
// not worth notifying
func FromEvent(e events.Event) *Notification {
	str := func(k string) string { s, _ := e.Data[k].(string); return s }
	num := func(k string) float64 { f, _ := e.Data[k].(float64); return f }

	n := &Notification{Instrument: str("instrument"), Timestamp: e.Timestamp}
	switch e.Type {
	case events.EventSignalGenerated:
		n.Type = NotifySignal
		n.Title = fmt.Sprintf("Signal: %s %s", strings.ToUpper(str("direction")), n.Instrument)
		n.Message = fmt.Sprintf("Entry: %.6g\nSL: %.6g | TP: %.6g\nScore: %.0f",
			num("entry"), num("stop_loss"), num("target"), num("score"))
		n.Price = num("entry")
	case events.EventTradeOpened:
		n.Type = NotifyTradeOpen
		n.Title = fmt.Sprintf("Trade Opened: %s", n.Instrument)
		n.Message = fmt.Sprintf("%s %.8g @ %.6g\nSL: %.6g | TP: %.6g",
			strings.ToUpper(str("direction")), num("quantity"), num("entry_price"), num("stop_loss"), num("target"))
		n.Price = num("entry_price")
	case events.EventTradeClosed:
		n.Type = NotifyTradeClose
		n.Title = fmt.Sprintf("Trade Closed: %s", n.Instrument)
		n.PnL = num("pnl")
		n.PnLPercent = num("pnl_percent")
		n.Price = num("exit_price")
		n.Message = fmt.Sprintf("Entry: %.6g -> Exit: %.6g\nP&L: %.4f (%.2f%%)\nReason: %s",
			num("entry_price"), n.Price, n.PnL, n.PnLPercent, str("reason"))
	case events.EventCircuitTripped:
		n.Type = NotifyHalt
		n.Title = "Trading halted"
		n.Message = str("reason")
	case events.EventOrderFailed:
		n.Type = NotifyError
		n.Title = fmt.Sprintf("Order failed: %s", n.Instrument)
		n.Message = fmt.Sprintf("%s %.8g: %s", str("side"), num("quantity"), str("error"))
	default:
		return nil
	}
	return n
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		apiBase:  "https://api.telegram.org",
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(ctx context.Context, notification *Notification) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message),
		"parse_mode": "Markdown",
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	return postJSON(ctx, t.client, url, payload, http.StatusOK)
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(ctx context.Context, notification *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x00FF00 // Green
	switch {
	case notification.Type == NotifyError, notification.Type == NotifyHalt:
		color = 0xFF0000
	case notification.Type == NotifyTradeClose && notification.PnL < 0:
		color = 0xFF0000
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	if notification.Instrument != "" {
		fields := []map[string]interface{}{
			{"name": "Instrument", "value": notification.Instrument, "inline": true},
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.6g", notification.Price), "inline": true,
			})
		}
		if notification.PnL != 0 {
			fields = append(fields, map[string]interface{}{
				"name": "P&L", "value": fmt.Sprintf("%.4f (%.2f%%)", notification.PnL, notification.PnLPercent), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}
	return postJSON(ctx, d.client, d.webhookURL, payload, http.StatusOK, http.StatusNoContent)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}, okStatus ...int) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	for _, code := range okStatus {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("API returned status %d", resp.StatusCode)
}

package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"

	"roostoo-trading-bot/config"
)

// ErrNotFound is returned when the credential secret does not exist
var ErrNotFound = errors.New("vault: credentials not found")

// Credentials represents the secrets stored in Vault for the bot
type Credentials struct {
	RoostooAPIKey    string `json:"roostoo_api_key"`
	RoostooSecretKey string `json:"roostoo_secret_key"`
	HorusAPIKey      string `json:"horus_api_key"`
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client *api.Client
	config config.VaultConfig
	logger zerolog.Logger

	mu     sync.RWMutex
	cached *Credentials
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		config: cfg,
		logger: logger.With().Str("component", "vault").Logger(),
	}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	c.client = client

	return c, nil
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// GetCredentials reads the credential secret from the KV v2 engine. The
// result is cached for the life of the client.
func (c *Client) GetCredentials(ctx context.Context) (*Credentials, error) {
	c.mu.RLock()
	if c.cached != nil {
		creds := *c.cached
		c.mu.RUnlock()
		return &creds, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, ErrNotFound
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, ErrNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	creds := &Credentials{
		RoostooAPIKey:    getString(data, "roostoo_api_key"),
		RoostooSecretKey: getString(data, "roostoo_secret_key"),
		HorusAPIKey:      getString(data, "horus_api_key"),
	}

	c.mu.Lock()
	c.cached = creds
	c.mu.Unlock()

	out := *creds
	return &out, nil
}

// StoreCredentials writes the credential secret
func (c *Client) StoreCredentials(ctx context.Context, creds Credentials) error {
	if c.config.Enabled {
		_, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(), map[string]interface{}{
			"data": map[string]interface{}{
				"roostoo_api_key":    creds.RoostooAPIKey,
				"roostoo_secret_key": creds.RoostooSecretKey,
				"horus_api_key":      creds.HorusAPIKey,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to store credentials in vault: %w", err)
		}
	}

	c.mu.Lock()
	c.cached = &creds
	c.mu.Unlock()
	return nil
}

// Apply fills credentials missing from cfg with the values held in Vault.
// Values already present in the configuration take precedence.
func (c *Client) Apply(ctx context.Context, cfg *config.Config) error {
	if !c.config.Enabled {
		return nil
	}
	creds, err := c.GetCredentials(ctx)
	if err != nil {
		return err
	}

	applied := 0
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			applied++
		}
	}
	fill(&cfg.RoostooConfig.APIKey, creds.RoostooAPIKey)
	fill(&cfg.RoostooConfig.SecretKey, creds.RoostooSecretKey)
	fill(&cfg.MarketDataConfig.HorusAPIKey, creds.HorusAPIKey)

	c.logger.Info().Int("applied", applied).Str("path", c.secretPath()).Msg("Credentials resolved from vault")
	return nil
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (c *Client) secretPath() string {
	return fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roostoo-trading-bot/config"
)

func kvServer(t *testing.T, reads *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/roostoo-bot/credentials", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		atomic.AddInt32(reads, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"roostoo_api_key":"vk","roostoo_secret_key":"vs","horus_api_key":"vh"},"metadata":{"version":1}}}`))
	}))
}

func testConfig(addr string) config.VaultConfig {
	return config.VaultConfig{
		Enabled:    true,
		Address:    addr,
		Token:      "test-token",
		MountPath:  "secret",
		SecretPath: "roostoo-bot/credentials",
	}
}

func TestGetCredentialsCaches(t *testing.T) {
	var reads int32
	srv := kvServer(t, &reads)
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)

	creds, err := c.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vk", creds.RoostooAPIKey)
	assert.Equal(t, "vs", creds.RoostooSecretKey)
	assert.Equal(t, "vh", creds.HorusAPIKey)

	_, err = c.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reads))
}

func TestApplyKeepsExplicitValues(t *testing.T) {
	var reads int32
	srv := kvServer(t, &reads)
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.RoostooConfig.APIKey = "from-env"
	require.NoError(t, c.Apply(context.Background(), cfg))

	assert.Equal(t, "from-env", cfg.RoostooConfig.APIKey)
	assert.Equal(t, "vs", cfg.RoostooConfig.SecretKey)
	assert.Equal(t, "vh", cfg.MarketDataConfig.HorusAPIKey)
}

func TestDisabledClient(t *testing.T) {
	c, err := NewClient(config.VaultConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, c.IsEnabled())

	_, err = c.GetCredentials(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := config.Default()
	assert.NoError(t, c.Apply(context.Background(), cfg))
	assert.NoError(t, c.Health(context.Background()))

	require.NoError(t, c.StoreCredentials(context.Background(), Credentials{RoostooAPIKey: "k"}))
	creds, err := c.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k", creds.RoostooAPIKey)
}

package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "api.coinbase.com", cfg.Coinbase.APIHost)
	assert.Equal(t, "https", cfg.Coinbase.Scheme)
	assert.Equal(t, 10*time.Second, cfg.Coinbase.RequestTimeout())
	assert.Equal(t, 100, cfg.Coinbase.AccountsPageSize)
	assert.Equal(t, 100, cfg.Coinbase.TransactionsPageSize)
	assert.Equal(t, 10.0, cfg.Coinbase.RateLimitPerSecond)
	assert.Equal(t, 5, cfg.Coinbase.RateLimitBurst)
	assert.Equal(t, "cdp", cfg.Auth.Issuer)
	assert.Equal(t, 2*time.Minute, cfg.Auth.TokenTTL())
	assert.Equal(t, "USD", cfg.Portfolio.QuoteCurrency)
	assert.Equal(t, "BTC", cfg.Portfolio.AnchorCurrency)
	assert.Equal(t, 5*time.Minute, cfg.Portfolio.CacheTTL())
	assert.Equal(t, time.Minute, cfg.Portfolio.RefreshTimeout())
	assert.Equal(t, 8, cfg.Portfolio.MaxConcurrentEnrichments)
	assert.Equal(t, 250*time.Millisecond, cfg.Portfolio.PageDelay())
	assert.Equal(t, 30*time.Second, cfg.Portfolio.PriceCacheTTL())
	assert.Empty(t, cfg.Scheduler.RefreshSchedule)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ".env", cfg.Credentials.EnvFile)
}

func TestLoad_OverridesAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
coinbase:
  apiHost: localhost:8081/
  scheme: http
  rateLimitPerSecond: 2.5
auth:
  tokenTTLSeconds: 600
portfolio:
  quoteCurrency: eur
  anchorCurrency: eth
  cacheTTLMinutes: 1
  priceCacheTTLSeconds: -1
scheduler:
  refreshSchedule: "@every 10m"
logging:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:8081", cfg.Coinbase.APIHost)
	assert.Equal(t, "http", cfg.Coinbase.Scheme)
	assert.Equal(t, 2.5, cfg.Coinbase.RateLimitPerSecond)
	assert.Equal(t, 120, cfg.Auth.TokenTTLSeconds)
	assert.Equal(t, "EUR", cfg.Portfolio.QuoteCurrency)
	assert.Equal(t, "ETH", cfg.Portfolio.AnchorCurrency)
	assert.Equal(t, time.Minute, cfg.Portfolio.CacheTTL())
	assert.Zero(t, cfg.Portfolio.PriceCacheTTL())
	assert.Equal(t, "@every 10m", cfg.Scheduler.RefreshSchedule)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = Parse([]byte("server: [not, a, map"))
	require.Error(t, err)

	_, err = Parse([]byte("coinbase:\n  scheme: ftp\n"))
	require.Error(t, err)

	_, err = Parse([]byte("coinbase:\n  apiHost: https://api.coinbase.com\n"))
	require.Error(t, err)
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, PathFromEnv())

	t.Setenv("CONFIG_PATH", "/etc/tracker.yml")
	assert.Equal(t, "/etc/tracker.yml", PathFromEnv())
}

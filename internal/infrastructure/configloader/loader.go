package configloader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/config.yml"

// ServerConfig holds the display API listener settings. Timeouts are in seconds.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// CoinbaseConfig holds the exchange API settings.
type CoinbaseConfig struct {
	APIHost              string  `yaml:"apiHost"`
	Scheme               string  `yaml:"scheme"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	AccountsPageSize     int     `yaml:"accountsPageSize"`
	TransactionsPageSize int     `yaml:"transactionsPageSize"`
	RateLimitPerSecond   float64 `yaml:"rateLimitPerSecond"`
	RateLimitBurst       int     `yaml:"rateLimitBurst"`
}

// AuthConfig holds request token settings.
type AuthConfig struct {
	Issuer          string `yaml:"issuer"`
	TokenTTLSeconds int    `yaml:"tokenTTLSeconds"`
}

// PortfolioConfig holds aggregation settings.
type PortfolioConfig struct {
	QuoteCurrency            string `yaml:"quoteCurrency"`
	AnchorCurrency           string `yaml:"anchorCurrency"`
	CacheTTLMinutes          int    `yaml:"cacheTTLMinutes"`
	RefreshTimeoutSeconds    int    `yaml:"refreshTimeoutSeconds"`
	MaxConcurrentEnrichments int    `yaml:"maxConcurrentEnrichments"`
	PageDelayMillis          int64  `yaml:"pageDelayMillis"`
	PriceCacheTTLSeconds     int    `yaml:"priceCacheTTLSeconds"`
}

// SchedulerConfig holds the periodic refresh settings. An empty RefreshSchedule disables it.
type SchedulerConfig struct {
	RefreshSchedule string `yaml:"refreshSchedule"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// CredentialsConfig says where API credentials come from.
type CredentialsConfig struct {
	EnvFile string `yaml:"envFile"`
	KeyFile string `yaml:"keyFile"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Coinbase    CoinbaseConfig    `yaml:"coinbase"`
	Auth        AuthConfig        `yaml:"auth"`
	Portfolio   PortfolioConfig   `yaml:"portfolio"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Logging     LoggingConfig     `yaml:"logging"`
	Credentials CredentialsConfig `yaml:"credentials"`
}

// PathFromEnv returns CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML configuration file from the given path, unmarshals it and fills defaults.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML config data and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data: %v", err)
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		// A forced refresh can take most of a minute.
		cfg.Server.WriteTimeout = 90
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}

	if cfg.Coinbase.APIHost == "" {
		cfg.Coinbase.APIHost = "api.coinbase.com"
		logrus.Infof("Coinbase.APIHost not set, defaulting to %s", cfg.Coinbase.APIHost)
	}
	cfg.Coinbase.APIHost = strings.TrimRight(cfg.Coinbase.APIHost, "/")
	if cfg.Coinbase.Scheme == "" {
		cfg.Coinbase.Scheme = "https"
	}
	if cfg.Coinbase.RequestTimeoutMillis <= 0 {
		cfg.Coinbase.RequestTimeoutMillis = 10000
		logrus.Infof("Coinbase.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Coinbase.RequestTimeoutMillis)
	}
	if cfg.Coinbase.AccountsPageSize <= 0 {
		cfg.Coinbase.AccountsPageSize = 100
	}
	if cfg.Coinbase.TransactionsPageSize <= 0 {
		cfg.Coinbase.TransactionsPageSize = 100
	}
	if cfg.Coinbase.RateLimitPerSecond <= 0 {
		cfg.Coinbase.RateLimitPerSecond = 10
		logrus.Infof("Coinbase.RateLimitPerSecond not set, defaulting to %.0f", cfg.Coinbase.RateLimitPerSecond)
	}
	if cfg.Coinbase.RateLimitBurst <= 0 {
		cfg.Coinbase.RateLimitBurst = 5
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "cdp"
	}
	switch {
	case cfg.Auth.TokenTTLSeconds <= 0:
		cfg.Auth.TokenTTLSeconds = 120
	case cfg.Auth.TokenTTLSeconds > 120:
		logrus.Warnf("Auth.TokenTTLSeconds %d exceeds the 120s the exchange accepts, clamping", cfg.Auth.TokenTTLSeconds)
		cfg.Auth.TokenTTLSeconds = 120
	}

	if cfg.Portfolio.QuoteCurrency == "" {
		cfg.Portfolio.QuoteCurrency = "USD"
	}
	cfg.Portfolio.QuoteCurrency = strings.ToUpper(cfg.Portfolio.QuoteCurrency)
	if cfg.Portfolio.AnchorCurrency == "" {
		cfg.Portfolio.AnchorCurrency = "BTC"
		logrus.Infof("Portfolio.AnchorCurrency not set, defaulting to %s", cfg.Portfolio.AnchorCurrency)
	}
	cfg.Portfolio.AnchorCurrency = strings.ToUpper(cfg.Portfolio.AnchorCurrency)
	if cfg.Portfolio.CacheTTLMinutes <= 0 {
		cfg.Portfolio.CacheTTLMinutes = 5
	}
	if cfg.Portfolio.RefreshTimeoutSeconds <= 0 {
		cfg.Portfolio.RefreshTimeoutSeconds = 60
	}
	if cfg.Portfolio.MaxConcurrentEnrichments <= 0 {
		cfg.Portfolio.MaxConcurrentEnrichments = 8
	}
	if cfg.Portfolio.PageDelayMillis <= 0 {
		cfg.Portfolio.PageDelayMillis = 250
	}
	if cfg.Portfolio.PriceCacheTTLSeconds < 0 {
		cfg.Portfolio.PriceCacheTTLSeconds = 0
	} else if cfg.Portfolio.PriceCacheTTLSeconds == 0 {
		cfg.Portfolio.PriceCacheTTLSeconds = 30
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Credentials.EnvFile == "" {
		cfg.Credentials.EnvFile = ".env"
	}
}

func validate(cfg *Config) error {
	switch cfg.Coinbase.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("coinbase.scheme must be http or https, got %q", cfg.Coinbase.Scheme)
	}
	if strings.Contains(cfg.Coinbase.APIHost, "://") {
		return fmt.Errorf("coinbase.apiHost must not include a scheme, got %q", cfg.Coinbase.APIHost)
	}
	if cfg.Portfolio.QuoteCurrency == cfg.Portfolio.AnchorCurrency {
		logrus.Warnf("Anchor currency equals quote currency (%s)", cfg.Portfolio.QuoteCurrency)
	}
	return nil
}

// RequestTimeout returns the per-request timeout as a duration.
func (c CoinbaseConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

// TokenTTL returns the signed token lifetime as a duration.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// CacheTTL returns the snapshot lifetime as a duration.
func (c PortfolioConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// RefreshTimeout returns the refresh deadline as a duration.
func (c PortfolioConfig) RefreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeoutSeconds) * time.Second
}

// PageDelay returns the pause between transaction pages as a duration.
func (c PortfolioConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMillis) * time.Millisecond
}

// PriceCacheTTL returns the quote memoization lifetime. Zero disables it.
func (c PortfolioConfig) PriceCacheTTL() time.Duration {
	return time.Duration(c.PriceCacheTTLSeconds) * time.Second
}

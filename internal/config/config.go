package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Remote drivers accepted in REMOTE_DRIVER. An empty driver runs the store local-only.
const (
	DriverNone       = ""
	DriverClickHouse = "clickhouse"
	DriverPostgres   = "postgres"
	DriverMemory     = "memory"
)

// Config holds the application configuration
type Config struct {
	TelegramToken  string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	RawAllowedIDs  string  `envconfig:"ALLOWED_USER_IDS" required:"true"`
	AllowedUserIDs []int64 `ignored:"true"`

	// Bot mode configuration
	WebhookMode bool   `envconfig:"WEBHOOK_MODE"` // If true, use webhook mode; if false, use polling mode
	WebhookURL  string `envconfig:"WEBHOOK_URL"`  // URL for webhook (required if WebhookMode is true)

	Port      int    `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Remote store; empty means local-only mode
	RemoteDriver string `envconfig:"REMOTE_DRIVER"`

	ClickHouse

	// PostgreSQL configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// Local cache
	CachePath     string `envconfig:"CACHE_PATH" default:"./data/cache"`
	CacheDisabled bool   `envconfig:"CACHE_DISABLED"`

	// Startup hydration bounds
	HydrationFallbackTimeout time.Duration `envconfig:"HYDRATION_FALLBACK_TIMEOUT" default:"2500ms"`
	HydrationRaceTimeout     time.Duration `envconfig:"HYDRATION_RACE_TIMEOUT" default:"5s"`
}

// ClickHouse holds the ClickHouse connection settings
type ClickHouse struct {
	ClickHouseHost     string `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePort     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	ClickHouseDatabase string `envconfig:"CLICKHOUSE_DATABASE" default:"default"`
	ClickHouseUser     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	ClickHousePassword string `envconfig:"CLICKHOUSE_PASSWORD"`
	ClickHouseUseTLS   bool   `envconfig:"CLICKHOUSE_USE_TLS"`
}

// ClickHouseFromEnv reads only the ClickHouse settings, for tools that run without the bot.
// An unset host means localhost.
func ClickHouseFromEnv() (ClickHouse, error) {
	var c ClickHouse
	if err := envconfig.Process("", &c); err != nil {
		return ClickHouse{}, fmt.Errorf("failed to read ClickHouse settings: %w", err)
	}
	if c.ClickHouseHost == "" {
		c.ClickHouseHost = "localhost"
	}
	return c, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Telegram Bot Token (required, may be set but blank)
	if strings.TrimSpace(config.TelegramToken) == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Allowed User IDs (required)
	for _, idStr := range strings.Split(config.RawAllowedIDs, ",") {
		if strings.TrimSpace(idStr) == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ALLOWED_USER_IDS: %s", idStr)
		}
		config.AllowedUserIDs = append(config.AllowedUserIDs, id)
	}
	if len(config.AllowedUserIDs) == 0 {
		return nil, fmt.Errorf("ALLOWED_USER_IDS is required (comma-separated list of Telegram user IDs)")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	if c.WebhookMode && c.WebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
	}

	switch c.RemoteDriver {
	case DriverNone, DriverMemory:
	case DriverClickHouse:
		if c.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when REMOTE_DRIVER is %s", DriverClickHouse)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when REMOTE_DRIVER is %s", DriverPostgres)
		}
	default:
		return fmt.Errorf("invalid REMOTE_DRIVER %q (want clickhouse, postgres, memory or empty)", c.RemoteDriver)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (want json or console)", c.LogFormat)
	}

	if c.HydrationFallbackTimeout <= 0 || c.HydrationRaceTimeout <= 0 {
		return fmt.Errorf("hydration timeouts must be positive")
	}
	return nil
}

// RemoteEnabled reports whether a remote store is configured
func (c *Config) RemoteEnabled() bool {
	return c.RemoteDriver != DriverNone
}

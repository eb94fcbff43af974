// Package config defines the top-level configuration for the tao dividends
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TAODIV_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Subtensor SubtensorConfig `toml:"subtensor"`
	Cache     CacheConfig     `toml:"cache"`
	Sentiment SentimentConfig `toml:"sentiment"`
	Trader    TraderConfig    `toml:"trader"`
	Archive   ArchiveConfig   `toml:"archive"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// AuthConfig holds both authentication schemes: the legacy static API key
// and the time-bounded signed token. If APIKey is empty, authentication is
// disabled (development only).
type AuthConfig struct {
	APIKey      string   `toml:"api_key"`
	TokenSecret string   `toml:"token_secret"`
	TokenTTL    duration `toml:"token_ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// JobStream is the Redis stream that carries pending trade job IDs to
	// the worker processes.
	JobStream string `toml:"job_stream"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SubtensorConfig holds chain gateway parameters.
type SubtensorConfig struct {
	// Endpoint is the websocket RPC endpoint of the chain gateway, e.g.
	// "wss://test.finney.opentensor.ai:443".
	Endpoint string `toml:"endpoint"`
	// DefaultNetUID and FallbackHotkey are used when a request omits the
	// query parameters; FallbackHotkey is also the secondary identity tried
	// when the live query fails.
	DefaultNetUID  int      `toml:"default_netuid"`
	FallbackHotkey string   `toml:"fallback_hotkey"`
	RequestTimeout duration `toml:"request_timeout"`
	// WalletKeyPath points at the encrypted seed file used to
	// authorize stake extrinsics. WalletKeyPassword decrypts it.
	WalletKeyPath     string `toml:"wallet_key_path"`
	WalletKeyPassword string `toml:"wallet_key_password"`
}

// CacheConfig holds result cache parameters.
type CacheConfig struct {
	TTL duration `toml:"ttl"`
}

// SentimentConfig holds the tweet search and scoring API parameters.
type SentimentConfig struct {
	DaturaURL    string   `toml:"datura_url"`
	DaturaAPIKey string   `toml:"datura_api_key"`
	ChutesURL    string   `toml:"chutes_url"`
	ChutesAPIKey string   `toml:"chutes_api_key"`
	ChutesModel  string   `toml:"chutes_model"`
	Timeout      duration `toml:"timeout"`
}

// TraderConfig holds background trade worker parameters.
type TraderConfig struct {
	Workers    int      `toml:"workers"`
	JobTimeout duration `toml:"job_timeout"`
	// StakeCoefficient converts a sentiment score into a stake delta in TAO
	// (stake_delta = coefficient * score).
	StakeCoefficient float64 `toml:"stake_coefficient"`
}

// ArchiveConfig holds the history archiver parameters. RetentionDays == 0
// disables archiving entirely.
type ArchiveConfig struct {
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
	S3            S3Config `toml:"s3"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "2m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimit:       60,
			RateLimitWindow: duration{time.Minute},
		},
		Auth: AuthConfig{
			TokenTTL: duration{30 * time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			JobStream:  "trade_jobs",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "taodividends",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Subtensor: SubtensorConfig{
			Endpoint:       "wss://test.finney.opentensor.ai:443",
			DefaultNetUID:  18,
			FallbackHotkey: "5FFApaS75bv5pJHfAp2FVLBj9ZaXuFDjEypsaBNc1wCfe52v",
			RequestTimeout: duration{5 * time.Second},
		},
		Cache: CacheConfig{
			TTL: duration{120 * time.Second},
		},
		Sentiment: SentimentConfig{
			DaturaURL:   "https://apis.datura.ai/twitter",
			ChutesURL:   "https://llm.chutes.ai/v1/chat/completions",
			ChutesModel: "unsloth/Llama-3.2-3B-Instruct",
			Timeout:     duration{15 * time.Second},
		},
		Trader: TraderConfig{
			Workers:          4,
			JobTimeout:       duration{60 * time.Second},
			StakeCoefficient: 0.01,
		},
		Archive: ArchiveConfig{
			RetentionDays: 0,
			Interval:      duration{24 * time.Hour},
			S3: S3Config{
				Endpoint:       "http://localhost:9000",
				Region:         "us-east-1",
				Bucket:         "taodividends-archive",
				ForcePathStyle: true,
			},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "trade_failed", "ledger_unavailable"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":  true,
	"worker": true,
	"light":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, worker, light)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	mode := strings.ToLower(c.Mode)

	// Server
	if mode != "worker" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	// Auth: a signed-token secret is required whenever an API key is set,
	// since the token endpoint exchanges one for the other.
	if c.Auth.APIKey != "" && c.Auth.TokenSecret == "" {
		errs = append(errs, "auth: token_secret is required when api_key is set")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		errs = append(errs, "auth: token_ttl must be positive")
	}

	// Light mode runs entirely on in-memory stores; external backends are
	// only validated for the other modes.
	if mode != "light" {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.JobStream == "" {
			errs = append(errs, "redis: job_stream must not be empty")
		}

		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Subtensor
	if c.Subtensor.Endpoint == "" {
		errs = append(errs, "subtensor: endpoint must not be empty")
	}
	if c.Subtensor.DefaultNetUID < 0 {
		errs = append(errs, "subtensor: default_netuid must be >= 0")
	}
	if c.Subtensor.FallbackHotkey == "" {
		errs = append(errs, "subtensor: fallback_hotkey must not be empty")
	}
	if c.Subtensor.RequestTimeout.Duration <= 0 {
		errs = append(errs, "subtensor: request_timeout must be positive")
	}
	if c.Subtensor.WalletKeyPath != "" && c.Subtensor.WalletKeyPassword == "" {
		errs = append(errs, "subtensor: wallet_key_password is required when wallet_key_path is set")
	}

	// Cache
	if c.Cache.TTL.Duration <= 0 {
		errs = append(errs, "cache: ttl must be positive")
	}

	// Trader
	if c.Trader.Workers < 1 {
		errs = append(errs, "trader: workers must be >= 1")
	}
	if c.Trader.JobTimeout.Duration <= 0 {
		errs = append(errs, "trader: job_timeout must be positive")
	}
	if c.Trader.StakeCoefficient <= 0 {
		errs = append(errs, "trader: stake_coefficient must be > 0")
	}

	// Archive
	if c.Archive.RetentionDays < 0 {
		errs = append(errs, "archive: retention_days must be >= 0")
	}
	if c.Archive.RetentionDays > 0 {
		if c.Archive.S3.Endpoint == "" {
			errs = append(errs, "archive: s3.endpoint must not be empty when retention is enabled")
		}
		if c.Archive.S3.Bucket == "" {
			errs = append(errs, "archive: s3.bucket must not be empty when retention is enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive when retention is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TAODIV_* environment variable overrides, and
// returns the final Config. A missing config file is not an error: defaults
// plus environment overrides are enough to run. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TAODIV_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "TAODIV_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TAODIV_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "TAODIV_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "TAODIV_SERVER_RATE_LIMIT_WINDOW")

	// ── Auth ──
	setStr(&cfg.Auth.APIKey, "TAODIV_AUTH_API_KEY")
	setStr(&cfg.Auth.APIKey, "API_TOKEN") // compatibility alias
	setStr(&cfg.Auth.TokenSecret, "TAODIV_AUTH_TOKEN_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "TAODIV_AUTH_TOKEN_TTL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TAODIV_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TAODIV_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TAODIV_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TAODIV_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TAODIV_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TAODIV_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.JobStream, "TAODIV_REDIS_JOB_STREAM")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "TAODIV_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "TAODIV_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TAODIV_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TAODIV_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TAODIV_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TAODIV_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TAODIV_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TAODIV_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TAODIV_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TAODIV_POSTGRES_RUN_MIGRATIONS")

	// ── Subtensor ──
	setStr(&cfg.Subtensor.Endpoint, "TAODIV_SUBTENSOR_ENDPOINT")
	setInt(&cfg.Subtensor.DefaultNetUID, "TAODIV_SUBTENSOR_DEFAULT_NETUID")
	setStr(&cfg.Subtensor.FallbackHotkey, "TAODIV_SUBTENSOR_FALLBACK_HOTKEY")
	setDuration(&cfg.Subtensor.RequestTimeout, "TAODIV_SUBTENSOR_REQUEST_TIMEOUT")
	setStr(&cfg.Subtensor.WalletKeyPath, "TAODIV_SUBTENSOR_WALLET_KEY_PATH")
	setStr(&cfg.Subtensor.WalletKeyPassword, "TAODIV_SUBTENSOR_WALLET_KEY_PASSWORD")

	// ── Cache ──
	setDuration(&cfg.Cache.TTL, "TAODIV_CACHE_TTL")

	// ── Sentiment ──
	setStr(&cfg.Sentiment.DaturaURL, "TAODIV_SENTIMENT_DATURA_URL")
	setStr(&cfg.Sentiment.DaturaAPIKey, "TAODIV_SENTIMENT_DATURA_API_KEY")
	setStr(&cfg.Sentiment.DaturaAPIKey, "DATURA_APIKEY") // compatibility alias
	setStr(&cfg.Sentiment.ChutesURL, "TAODIV_SENTIMENT_CHUTES_URL")
	setStr(&cfg.Sentiment.ChutesAPIKey, "TAODIV_SENTIMENT_CHUTES_API_KEY")
	setStr(&cfg.Sentiment.ChutesModel, "TAODIV_SENTIMENT_CHUTES_MODEL")
	setStr(&cfg.Sentiment.ChutesAPIKey, "CHUTES_API_KEY") // compatibility alias
	setDuration(&cfg.Sentiment.Timeout, "TAODIV_SENTIMENT_TIMEOUT")

	// ── Trader ──
	setInt(&cfg.Trader.Workers, "TAODIV_TRADER_WORKERS")
	setDuration(&cfg.Trader.JobTimeout, "TAODIV_TRADER_JOB_TIMEOUT")
	setFloat64(&cfg.Trader.StakeCoefficient, "TAODIV_TRADER_STAKE_COEFFICIENT")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "TAODIV_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "TAODIV_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.S3.Endpoint, "TAODIV_ARCHIVE_S3_ENDPOINT")
	setStr(&cfg.Archive.S3.Region, "TAODIV_ARCHIVE_S3_REGION")
	setStr(&cfg.Archive.S3.Bucket, "TAODIV_ARCHIVE_S3_BUCKET")
	setStr(&cfg.Archive.S3.AccessKey, "TAODIV_ARCHIVE_S3_ACCESS_KEY")
	setStr(&cfg.Archive.S3.SecretKey, "TAODIV_ARCHIVE_S3_SECRET_KEY")
	setBool(&cfg.Archive.S3.UseSSL, "TAODIV_ARCHIVE_S3_USE_SSL")
	setBool(&cfg.Archive.S3.ForcePathStyle, "TAODIV_ARCHIVE_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TAODIV_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TAODIV_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TAODIV_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TAODIV_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TAODIV_MODE")
	setStr(&cfg.LogLevel, "TAODIV_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

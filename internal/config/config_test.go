package config

import (
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown mode")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.Cache.TTL = duration{0}
	cfg.Trader.Workers = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "port")
	require.Contains(t, err.Error(), "ttl")
	require.Contains(t, err.Error(), "workers")
}

func TestValidateAPIKeyRequiresTokenSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.APIKey = "key"
	cfg.Auth.TokenSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "token_secret")
}

func TestValidateWalletPathRequiresPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Subtensor.WalletKeyPath = "/etc/wallet.json"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "wallet_key_password")
}

func TestValidateLightModeSkipsBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "light"
	cfg.Redis.Addr = ""
	cfg.Postgres.Host = ""

	require.NoError(t, cfg.Validate())
}

func TestValidateArchiveRequiresBucket(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.RetentionDays = 30
	cfg.Archive.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "s3.bucket")
}

func TestTOMLDurationDecoding(t *testing.T) {
	cfg := Defaults()
	_, err := toml.Decode(`
[cache]
ttl = "90s"

[subtensor]
request_timeout = "2s"
`, &cfg)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, cfg.Cache.TTL.Duration)
	require.Equal(t, 2*time.Second, cfg.Subtensor.RequestTimeout.Duration)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAODIV_AUTH_API_KEY", "from-env")
	t.Setenv("TAODIV_SERVER_PORT", "9001")
	t.Setenv("TAODIV_CACHE_TTL", "45s")
	t.Setenv("TAODIV_TRADER_STAKE_COEFFICIENT", "0.02")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	require.Equal(t, "from-env", cfg.Auth.APIKey)
	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, 45*time.Second, cfg.Cache.TTL.Duration)
	require.Equal(t, 0.02, cfg.Trader.StakeCoefficient)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.APIKey = "supersecret"
	cfg.Redis.Password = "redispass"
	cfg.Sentiment.ChutesAPIKey = "chuteskey"

	out := RedactedConfig(&cfg)

	require.Equal(t, "***", out.Auth.APIKey)
	require.Equal(t, "***", out.Redis.Password)
	require.Equal(t, "***", out.Sentiment.ChutesAPIKey)
	// The original is untouched.
	require.Equal(t, "supersecret", cfg.Auth.APIKey)
	// Non-secrets survive.
	require.Equal(t, cfg.Server.Port, out.Server.Port)
	require.False(t, strings.Contains(out.Subtensor.Endpoint, "***"))
}

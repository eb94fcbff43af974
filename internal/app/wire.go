package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/sylvaincormier/bittensor-async-api/internal/blob/s3"
	cachemem "github.com/sylvaincormier/bittensor-async-api/internal/cache/memory"
	"github.com/sylvaincormier/bittensor-async-api/internal/cache/redis"
	"github.com/sylvaincormier/bittensor-async-api/internal/config"
	"github.com/sylvaincormier/bittensor-async-api/internal/crypto"
	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
	"github.com/sylvaincormier/bittensor-async-api/internal/notify"
	"github.com/sylvaincormier/bittensor-async-api/internal/observability"
	"github.com/sylvaincormier/bittensor-async-api/internal/platform/sentiment"
	"github.com/sylvaincormier/bittensor-async-api/internal/platform/subtensor"
	storemem "github.com/sylvaincormier/bittensor-async-api/internal/store/memory"
	"github.com/sylvaincormier/bittensor-async-api/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	History domain.HistoryStore
	Jobs    domain.TradeJobStore

	// Cache, queue, rate limiting
	Cache   domain.DividendCache
	Queue   domain.JobQueue
	Limiter domain.RateLimiter

	// Chain gateway and sentiment pipeline
	Ledger    *subtensor.Client
	Sentiment domain.SentimentSource

	// Observability
	Metrics *observability.Metrics

	// Notifications
	Notifier    *notify.Notifier
	TradeEvents *notify.TradeEvents

	// History archiver; nil unless archiving is enabled for this mode.
	Archiver *s3blob.Archiver
}

// usesExternalStores reports whether the mode requires Redis and
// PostgreSQL. Light mode runs entirely on in-memory implementations.
func usesExternalStores(mode string) bool {
	return strings.ToLower(mode) != "light"
}

// usesArchiver reports whether the configuration enables the S3 history
// archiver. Retention zero disables it; only the serving process runs it.
func usesArchiver(cfg *config.Config) bool {
	return strings.ToLower(cfg.Mode) == "serve" && cfg.Archive.RetentionDays > 0
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	var pgHistory *postgres.HistoryStore

	if usesExternalStores(cfg.Mode) {
		// --- PostgreSQL ---
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		pgHistory = postgres.NewHistoryStore(pool)
		deps.History = pgHistory
		deps.Jobs = postgres.NewTradeJobStore(pool)

		// --- Redis ---
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewDividendCache(redisClient)
		deps.Queue = redis.NewJobQueue(redisClient, cfg.Redis.JobStream)
		deps.Limiter = redis.NewRateLimiter(redisClient)
	} else {
		deps.History = storemem.NewHistoryStore()
		deps.Jobs = storemem.NewTradeJobStore()
		deps.Cache = cachemem.NewDividendCache()
		deps.Queue = cachemem.NewJobQueue()
	}

	// --- Chain gateway ---
	seed := ""
	if cfg.Subtensor.WalletKeyPath != "" {
		var err error
		seed, err = crypto.LoadSeed(cfg.Subtensor.WalletKeyPath, cfg.Subtensor.WalletKeyPassword)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet seed: %w", err)
		}
	}
	deps.Ledger = subtensor.NewClient(cfg.Subtensor.Endpoint, seed)
	closers = append(closers, func() { _ = deps.Ledger.Close() })

	// --- Sentiment pipeline ---
	timeout := cfg.Sentiment.Timeout.Duration
	datura := sentiment.NewDaturaClient(cfg.Sentiment.DaturaURL, cfg.Sentiment.DaturaAPIKey, timeout)
	chutes := sentiment.NewChutesClient(cfg.Sentiment.ChutesURL, cfg.Sentiment.ChutesAPIKey, cfg.Sentiment.ChutesModel, timeout)
	deps.Sentiment = sentiment.NewAnalyzer(datura, chutes, logger)

	// --- Metrics ---
	deps.Metrics = observability.New()

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	deps.TradeEvents = notify.NewTradeEvents(deps.Notifier)

	// --- History archiver ---
	if usesArchiver(cfg) && pgHistory != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.S3.Endpoint,
			Region:         cfg.Archive.S3.Region,
			Bucket:         cfg.Archive.S3.Bucket,
			AccessKey:      cfg.Archive.S3.AccessKey,
			SecretKey:      cfg.Archive.S3.SecretKey,
			UseSSL:         cfg.Archive.S3.UseSSL,
			ForcePathStyle: cfg.Archive.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			pgHistory,
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			time.Duration(cfg.Archive.RetentionDays)*24*time.Hour,
			cfg.Archive.Interval.Duration,
			logger,
		)
	}

	return deps, cleanup, nil
}

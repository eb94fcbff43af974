package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sylvaincormier/bittensor-async-api/internal/crypto"
	"github.com/sylvaincormier/bittensor-async-api/internal/server"
	"github.com/sylvaincormier/bittensor-async-api/internal/server/handler"
	"github.com/sylvaincormier/bittensor-async-api/internal/service"
	"github.com/sylvaincormier/bittensor-async-api/internal/worker"
)

// serverShutdownTimeout bounds graceful HTTP shutdown after the run context
// is cancelled.
const serverShutdownTimeout = 5 * time.Second

// ServeMode runs the HTTP API together with in-process trade workers and,
// when configured, the history archiver. This is the default single-process
// deployment.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	resolver, trader := a.buildServices(deps)
	a.startWorkerPool(ctx, g, deps, trader)
	a.startHTTPServer(ctx, g, deps, resolver)

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	return g.Wait()
}

// WorkerMode runs only the trade job consumers, reading job IDs from the
// shared queue. Pair it with a separate serve or worker process pointed at
// the same Redis and Postgres.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode",
		slog.Int("workers", a.cfg.Trader.Workers),
	)

	g, ctx := errgroup.WithContext(ctx)

	_, trader := a.buildServices(deps)
	a.startWorkerPool(ctx, g, deps, trader)

	return g.Wait()
}

// LightMode runs the HTTP API and workers against in-memory stores, cache,
// and queue. Nothing survives a restart; intended for development and
// demos.
func (a *App) LightMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting light mode")

	g, ctx := errgroup.WithContext(ctx)

	resolver, trader := a.buildServices(deps)
	a.startWorkerPool(ctx, g, deps, trader)
	a.startHTTPServer(ctx, g, deps, resolver)

	return g.Wait()
}

// buildServices constructs the dividend resolver and the trade executor
// from the wired dependencies.
func (a *App) buildServices(deps *Dependencies) (*service.DividendService, *service.Trader) {
	resolver := service.NewDividendService(
		deps.Cache,
		deps.Ledger,
		deps.History,
		deps.Jobs,
		deps.Queue,
		deps.Metrics,
		a.logger,
		a.cfg.Cache.TTL.Duration,
		a.cfg.Subtensor.RequestTimeout.Duration,
		a.cfg.Subtensor.FallbackHotkey,
	)
	resolver.SetLedgerNotifier(deps.TradeEvents)

	trader := service.NewTrader(
		deps.Jobs,
		deps.Sentiment,
		deps.Ledger,
		deps.Metrics,
		deps.TradeEvents,
		a.logger,
	)
	trader.SetStakeCoefficient(a.cfg.Trader.StakeCoefficient)

	return resolver, trader
}

// startWorkerPool launches the trade job consumers on the errgroup.
func (a *App) startWorkerPool(ctx context.Context, g *errgroup.Group, deps *Dependencies, trader *service.Trader) {
	pool := worker.NewPool(
		deps.Queue,
		trader,
		a.cfg.Trader.Workers,
		a.cfg.Trader.JobTimeout.Duration,
		a.logger,
	)
	g.Go(func() error {
		return pool.Run(ctx)
	})
}

// startHTTPServer registers all handlers, builds the server, and launches
// the listen and shutdown goroutines on the errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, resolver *service.DividendService) {
	var signer *crypto.TokenSigner
	if a.cfg.Auth.TokenSecret != "" {
		signer = crypto.NewTokenSigner(a.cfg.Auth.TokenSecret)
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(
			deps.Ledger,
			a.cfg.Mode,
			a.cfg.Auth.APIKey != "",
			a.logger,
		),
		Dividends: handler.NewDividendHandler(
			resolver,
			a.cfg.Subtensor.DefaultNetUID,
			a.cfg.Subtensor.FallbackHotkey,
			a.logger,
		),
		Jobs:  handler.NewJobHandler(resolver, deps.Jobs, a.logger),
		Token: handler.NewTokenHandler(a.cfg.Auth.APIKey, signer, a.cfg.Auth.TokenTTL.Duration, a.logger),
	}
	if deps.Metrics != nil {
		handlers.Metrics = deps.Metrics.Handler()
	}

	srv := server.New(
		server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			APIKey:          a.cfg.Auth.APIKey,
			RateLimit:       a.cfg.Server.RateLimit,
			RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
		},
		handlers,
		signer,
		deps.Limiter,
		deps.Metrics,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

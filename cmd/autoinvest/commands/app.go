package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/advisory"
	"github.com/wonny/autoinvest/backend/internal/audit"
	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/brain"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/enrichment"
	"github.com/wonny/autoinvest/backend/internal/execution"
	"github.com/wonny/autoinvest/backend/internal/external/alphavantage"
	"github.com/wonny/autoinvest/backend/internal/external/angel"
	"github.com/wonny/autoinvest/backend/internal/external/llm"
	"github.com/wonny/autoinvest/backend/internal/external/marketdata"
	"github.com/wonny/autoinvest/backend/internal/external/nse"
	"github.com/wonny/autoinvest/backend/internal/external/sentiment"
	"github.com/wonny/autoinvest/backend/internal/external/telegram"
	"github.com/wonny/autoinvest/backend/internal/memstore"
	"github.com/wonny/autoinvest/backend/internal/policy"
	"github.com/wonny/autoinvest/backend/internal/realtime"
	"github.com/wonny/autoinvest/backend/internal/session"
	"github.com/wonny/autoinvest/backend/internal/watchlist"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/database"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
	"github.com/wonny/autoinvest/backend/pkg/redis"
	"github.com/wonny/autoinvest/backend/pkg/secrets"
)

// stores groups the repositories. Backed by Postgres or by memstore.
type stores struct {
	Config       contracts.ConfigRepository
	Watchlist    contracts.WatchlistRepository
	Logs         contracts.LogRepository
	Reservations contracts.ReservationRepository
	Orders       contracts.OrderRepository
}

// app is the fully wired dependency graph shared by serve and run
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg *config.Config
	log *logger.Logger

	stores  stores
	broker  contracts.BrokerageClient
	angel   *angel.Client
	notify  contracts.Notifier
	hub     *realtime.Hub
	configs *botconfig.Service
	items   *watchlist.Service
	ledger  *policy.Ledger

	orchestrator *brain.Orchestrator

	closers []func() error
}

// loadBase loads config and builds the logger
func loadBase() (*config.Config, *logger.Logger, error) {
	if memory {
		// --memory overrides STORAGE_BACKEND so DATABASE_URL is not required
		os.Setenv("STORAGE_BACKEND", "memory")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// openStores connects Postgres or falls back to the in-memory store
func openStores(ctx context.Context, cfg *config.Config) (stores, func() error, error) {
	if cfg.StorageBackend == "memory" {
		mem := memstore.New()
		return stores{
			Config:       mem.Config(),
			Watchlist:    mem.Watchlist(),
			Logs:         mem.Logs(),
			Reservations: mem.Reservations(),
			Orders:       mem.Orders(),
		}, func() error { return nil }, nil
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return stores{}, nil, fmt.Errorf("connect to database: %w", err)
	}
	exec := execution.NewRepository(db.Pool)
	return stores{
		Config:       botconfig.NewRepository(db.Pool),
		Watchlist:    watchlist.NewRepository(db.Pool),
		Logs:         audit.NewRepository(db.Pool),
		Reservations: exec.Reservations(),
		Orders:       exec.Orders(),
	}, func() error { db.Close(); return nil }, nil
}

// buildApp wires every collaborator of the orchestrator
func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	clk := clock.Real{}
	loc := cfg.Market.Location()

	// 1. Storage
	st, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.stores = st
	a.closers = append(a.closers, closeStores)
	log.WithField("storage", cfg.StorageBackend).Info("Storage ready")

	// 2. Secrets
	secretStore, closeSecrets, err := secrets.Open(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open secrets: %w", err)
	}
	a.closers = append(a.closers, closeSecrets)

	// 3. Redis (optional cache + shared rate limits)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}
	a.closers = append(a.closers, rdb.Close)
	limiter := redis.NewRateLimiter(rdb, "ratelimit")
	cache := redis.NewCache(rdb, "enrichment")

	// 4. External clients
	a.angel = angel.NewClient(cfg.Angel, secretStore, httputil.New(log), clk, log)
	nseClient := nse.NewClient(cfg.NSE, httputil.New(log), limiter, log)
	llmClient := llm.NewClient(cfg.LLM, secretStore, httputil.NewWithTimeout(log, cfg.Timeouts.Advisory), log)

	var indicators marketdata.IndicatorSource
	if cfg.AlphaVantage.Enabled {
		indicators = alphavantage.NewClient(cfg.AlphaVantage, secretStore, httputil.New(log), limiter, log)
	}
	market := marketdata.NewProvider(indicators, nseClient)

	var mood contracts.SentimentProvider
	if cfg.Sentiment.URL != "" {
		mood = sentiment.NewScraper(cfg.Sentiment, httputil.New(log), limiter, log)
	}

	// With no chat IDs configured Send is a no-op
	a.notify = telegram.NewNotifier(cfg.Telegram, secretStore, httputil.New(log), log)

	// 5. Broker
	if cfg.Angel.IsPaper() {
		var quotes execution.QuoteSource
		if _, err := secretStore.Get(ctx, angel.KeyAPIKey); err == nil {
			quotes = a.angel
		}
		a.broker = execution.NewPaperBroker(decimal.NewFromFloat(cfg.Angel.PaperCash), quotes, clk)
	} else {
		a.broker = a.angel
	}

	// 6. Services
	a.hub = realtime.NewHub(log)
	a.configs = botconfig.NewService(st.Config, log)
	a.items = watchlist.NewService(st.Watchlist, cfg.Market.Exchange, loc, log)

	engine := policy.NewEngine(policy.ScheduleFromConfig(cfg.Charges), log)
	a.ledger = policy.NewLedger(st.Watchlist, st.Reservations, engine, clk, log)

	recorder := audit.NewRecorder(st.Logs, a.notify, a.hub, cfg.Timeouts.Notify, log)

	// 7. Orchestrator
	a.orchestrator = brain.NewOrchestrator(brain.Deps{
		Configs:   st.Config,
		Watchlist: st.Watchlist,
		Broker:    a.broker,
		Session:   session.NewGate(nseClient, cfg.Timeouts.Session, log),
		Enricher: enrichment.NewAdapter(market, mood, cache, enrichment.Config{
			Timeout:      cfg.Timeouts.Enrichment,
			DefaultIndex: cfg.Market.DefaultIndex,
			CacheTTL:     redis.TTLEnrichment,
		}, log),
		Advisor:       advisory.NewPipeline(llmClient, cfg.Timeouts.Advisory, log),
		Engine:        engine,
		Ledger:        a.ledger,
		Gate:          execution.NewGate(log),
		Submitter:     execution.NewSubmitter(a.broker, st.Orders, cfg.Timeouts.Brokerage, clk, log),
		Recorder:      recorder,
		Streaks:       audit.NewStreakTracker(cfg.AlertFailureStreak),
		BrokerTimeout: cfg.Timeouts.Brokerage,
		Clock:         clk,
		Logger:        log,
	})

	return a, nil
}

// Close releases storage, secrets and redis in reverse order
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

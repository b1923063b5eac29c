package enrichment

import (
	"context"
	"time"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/deadline"
	"github.com/wonny/autoinvest/backend/pkg/logger"
	"github.com/wonny/autoinvest/backend/pkg/redis"
)

// Adapter gathers best-effort advisory context for a watchlist item
// ⭐ SSOT: 보조 지표 수집은 여기서만 (실패해도 파이프라인을 막지 않음)
type Adapter struct {
	market       contracts.MarketDataProvider
	sentiment    contracts.SentimentProvider
	cache        *redis.Cache
	timeout      time.Duration
	defaultIndex string
	logger       *logger.Logger
}

// Config holds adapter settings
type Config struct {
	Timeout      time.Duration
	DefaultIndex string
	CacheTTL     time.Duration
}

// NewAdapter creates an enrichment adapter. Either provider may be nil.
func NewAdapter(
	market contracts.MarketDataProvider,
	sentiment contracts.SentimentProvider,
	cache *redis.Cache,
	cfg Config,
	log *logger.Logger,
) *Adapter {
	return &Adapter{
		market:       market,
		sentiment:    sentiment,
		cache:        cache,
		timeout:      cfg.Timeout,
		defaultIndex: cfg.DefaultIndex,
		logger:       log.WithComponent("enrichment"),
	}
}

// IndexFor picks the item's proxy index or the configured default
func (a *Adapter) IndexFor(item *contracts.WatchlistItem) string {
	if item.ProxyIndex != "" {
		return item.ProxyIndex
	}
	return a.defaultIndex
}

// Enrich fetches each field independently. It never returns an error;
// a failed or timed out sub-fetch leaves its field nil.
func (a *Adapter) Enrich(ctx context.Context, item *contracts.WatchlistItem) contracts.Enrichment {
	var out contracts.Enrichment
	log := a.logger.WithField("symbol", item.Symbol)

	if a.market != nil {
		out.Indicators = fetch(ctx, a, log, "indicators", redis.IndicatorsKey(item.Symbol),
			func(ctx context.Context) (*contracts.Indicators, error) {
				return a.market.GetIndicators(ctx, item.Symbol)
			})
		if out.Indicators.Empty() {
			out.Indicators = nil
		}

		if index := a.IndexFor(item); index != "" {
			out.Valuation = fetch(ctx, a, log, "valuation", redis.ValuationKey(index),
				func(ctx context.Context) (*contracts.IndexValuation, error) {
					return a.market.GetIndexValuation(ctx, index)
				})
		}
	}

	if a.sentiment != nil {
		out.Sentiment = fetch(ctx, a, log, "sentiment", redis.SentimentKey(), a.sentiment.GetSentiment)
	}

	if missing := out.Missing(); len(missing) > 0 {
		log.WithField("missing", missing).Debug("Enrichment degraded")
	}
	return out
}

// fetch reads through the cache and bounds the provider call.
// Only successful non-nil results are cached.
func fetch[T any](
	ctx context.Context,
	a *Adapter,
	log *logger.Logger,
	field string,
	key string,
	fn func(ctx context.Context) (*T, error),
) *T {
	if a.cache != nil {
		var cached T
		found, err := a.cache.Get(ctx, key, &cached)
		if err != nil {
			log.WithError(err).WithField("field", field).Debug("Enrichment cache read failed")
		}
		if found {
			return &cached
		}
	}

	val, err := deadline.Call(ctx, a.timeout, fn)
	if err != nil {
		log.WithError(err).WithField("field", field).Warn("Enrichment fetch failed")
		return nil
	}
	if val == nil {
		return nil
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, val, redis.TTLEnrichment); err != nil {
			log.WithError(err).WithField("field", field).Debug("Enrichment cache write failed")
		}
	}
	return val
}

package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
	"github.com/wonny/autoinvest/backend/pkg/redis"
)

func ptr(v float64) *float64 { return &v }

type fakeMarket struct {
	indicators    *contracts.Indicators
	indicatorsErr error
	valuation     *contracts.IndexValuation
	valuationErr  error
	delay         time.Duration
	indexAsked    string
}

func (f *fakeMarket) GetIndicators(ctx context.Context, symbol string) (*contracts.Indicators, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.indicators, f.indicatorsErr
}

func (f *fakeMarket) GetIndexValuation(ctx context.Context, index string) (*contracts.IndexValuation, error) {
	f.indexAsked = index
	return f.valuation, f.valuationErr
}

type fakeSentiment struct {
	s   *contracts.Sentiment
	err error
}

func (f *fakeSentiment) GetSentiment(ctx context.Context) (*contracts.Sentiment, error) {
	return f.s, f.err
}

func newAdapter(m contracts.MarketDataProvider, s contracts.SentimentProvider) *Adapter {
	return NewAdapter(m, s, redis.NewCache(redis.Disabled(), "test"), Config{
		Timeout:      50 * time.Millisecond,
		DefaultIndex: "NIFTY 50",
	}, logger.NewNop())
}

func TestEnrichAllFields(t *testing.T) {
	market := &fakeMarket{
		indicators: &contracts.Indicators{RSI14: ptr(48.2)},
		valuation:  &contracts.IndexValuation{Index: "NIFTY BANK", PE: ptr(15.1)},
	}
	a := newAdapter(market, &fakeSentiment{s: &contracts.Sentiment{Label: "Neutral"}})

	e := a.Enrich(context.Background(), &contracts.WatchlistItem{Symbol: "BANKBEES", ProxyIndex: "NIFTY BANK"})

	require.NotNil(t, e.Indicators)
	require.NotNil(t, e.Valuation)
	require.NotNil(t, e.Sentiment)
	assert.Equal(t, "NIFTY BANK", market.indexAsked)
	assert.Empty(t, e.Missing())
}

func TestEnrichDefaultIndex(t *testing.T) {
	market := &fakeMarket{valuation: &contracts.IndexValuation{Index: "NIFTY 50"}}
	a := newAdapter(market, nil)

	a.Enrich(context.Background(), &contracts.WatchlistItem{Symbol: "INFY"})
	assert.Equal(t, "NIFTY 50", market.indexAsked)
}

func TestEnrichFailuresDegradePerField(t *testing.T) {
	market := &fakeMarket{
		indicatorsErr: errors.New("alpha vantage: rate limited"),
		valuation:     &contracts.IndexValuation{Index: "NIFTY 50", PE: ptr(22.4)},
	}
	a := newAdapter(market, &fakeSentiment{err: errors.New("selector not found")})

	e := a.Enrich(context.Background(), &contracts.WatchlistItem{Symbol: "INFY"})

	assert.Nil(t, e.Indicators)
	assert.Nil(t, e.Sentiment)
	require.NotNil(t, e.Valuation)
	assert.Equal(t, 22.4, *e.Valuation.PE)
	assert.Equal(t, []string{"indicators", "sentiment"}, e.Missing())
}

func TestEnrichTimeoutDegrades(t *testing.T) {
	market := &fakeMarket{
		indicators: &contracts.Indicators{RSI14: ptr(70)},
		delay:      300 * time.Millisecond,
	}
	a := newAdapter(market, nil)

	start := time.Now()
	e := a.Enrich(context.Background(), &contracts.WatchlistItem{Symbol: "INFY"})
	assert.Nil(t, e.Indicators)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestEnrichEmptyIndicatorsTreatedAsAbsent(t *testing.T) {
	a := newAdapter(&fakeMarket{indicators: &contracts.Indicators{}}, nil)
	e := a.Enrich(context.Background(), &contracts.WatchlistItem{Symbol: "INFY"})
	assert.Nil(t, e.Indicators)
}

func TestEnrichNoProviders(t *testing.T) {
	a := newAdapter(nil, nil)
	e := a.Enrich(context.Background(), &contracts.WatchlistItem{Symbol: "INFY"})
	assert.Len(t, e.Missing(), 3)
}

package marketdata

import (
	"context"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// IndicatorSource supplies technical readings (alphavantage.Client)
type IndicatorSource interface {
	GetIndicators(ctx context.Context, symbol string) (*contracts.Indicators, error)
}

// ValuationSource supplies index valuation (nse.Client)
type ValuationSource interface {
	GetIndexValuation(ctx context.Context, index string) (*contracts.IndexValuation, error)
}

// Provider joins an indicator source and a valuation source into one
// contracts.MarketDataProvider. Either may be nil, reported as "not available".
type Provider struct {
	indicators IndicatorSource
	valuation  ValuationSource
}

// NewProvider creates a combined provider
func NewProvider(indicators IndicatorSource, valuation ValuationSource) *Provider {
	return &Provider{indicators: indicators, valuation: valuation}
}

// GetIndicators delegates to the indicator source
func (p *Provider) GetIndicators(ctx context.Context, symbol string) (*contracts.Indicators, error) {
	if p.indicators == nil {
		return nil, nil
	}
	return p.indicators.GetIndicators(ctx, symbol)
}

// GetIndexValuation delegates to the valuation source
func (p *Provider) GetIndexValuation(ctx context.Context, index string) (*contracts.IndexValuation, error) {
	if p.valuation == nil {
		return nil, nil
	}
	return p.valuation.GetIndexValuation(ctx, index)
}

package contracts

import "context"

// Collaborator capabilities consumed by the pipeline. Implementations live
// under internal/external; tests use in-process fakes.

// BrokerageClient is the brokerage session, market data and order surface
// ⭐ SSOT: 브로커 연동 인터페이스
type BrokerageClient interface {
	// Authenticate establishes or refreshes the trading session
	Authenticate(ctx context.Context) error
	IsAuthenticated() bool
	GetHoldings(ctx context.Context) ([]Holding, error)
	GetQuote(ctx context.Context, inst Instrument) (*Quote, error)
	GetFunds(ctx context.Context) (*Funds, error)
	PlaceOrder(ctx context.Context, spec OrderSpec) (string, error)
}

// AdvisoryClient completes a prompt with free text
type AdvisoryClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// MarketDataProvider supplies technical and valuation context.
// A nil result with nil error means "not available".
type MarketDataProvider interface {
	GetIndicators(ctx context.Context, symbol string) (*Indicators, error)
	GetIndexValuation(ctx context.Context, index string) (*IndexValuation, error)
}

// SentimentProvider supplies a market mood label
type SentimentProvider interface {
	GetSentiment(ctx context.Context) (*Sentiment, error)
}

// MarketStatusProvider returns the raw market status string ("Open", "Closed", ...)
type MarketStatusProvider interface {
	MarketStatus(ctx context.Context) (string, error)
}

// SecretStore resolves credential keys to plaintext
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// Notifier delivers operator alerts
type Notifier interface {
	Send(ctx context.Context, message string) error
}

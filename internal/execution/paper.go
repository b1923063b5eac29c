package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/clock"
)

// QuoteSource supplies prices to the paper broker
type QuoteSource interface {
	GetQuote(ctx context.Context, inst contracts.Instrument) (*contracts.Quote, error)
}

// PaperBroker implements BrokerageClient in memory and fills market orders
// at the current quote. Used for BROKER_MODE=paper and tests.
type PaperBroker struct {
	mu       sync.Mutex
	quotes   QuoteSource
	prices   map[string]decimal.Decimal
	holdings map[string]contracts.Holding
	cash     decimal.Decimal
	seq      int
	clock    clock.Clock

	// PlaceOrderCalls counts submissions, including rejected ones
	PlaceOrderCalls int
	// FailOrders makes every PlaceOrder return this error
	FailOrders error
}

// NewPaperBroker creates a paper broker holding cash. quotes may be nil;
// prices set with SetPrice take precedence.
func NewPaperBroker(cash decimal.Decimal, quotes QuoteSource, clk clock.Clock) *PaperBroker {
	return &PaperBroker{
		quotes:   quotes,
		prices:   make(map[string]decimal.Decimal),
		holdings: make(map[string]contracts.Holding),
		cash:     cash,
		clock:    clk,
	}
}

// Authenticate is a no-op
func (b *PaperBroker) Authenticate(ctx context.Context) error { return nil }

// IsAuthenticated is always true
func (b *PaperBroker) IsAuthenticated() bool { return true }

// SetPrice fixes the quote for a symbol
func (b *PaperBroker) SetPrice(symbol string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[strings.ToUpper(symbol)] = price
}

// SetHolding seeds a position
func (b *PaperBroker) SetHolding(h contracts.Holding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holdings[strings.ToUpper(h.Symbol)] = h
}

// GetHoldings lists positions marked at the last known price
func (b *PaperBroker) GetHoldings(ctx context.Context) ([]contracts.Holding, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]contracts.Holding, 0, len(b.holdings))
	for sym, h := range b.holdings {
		if p, ok := b.prices[sym]; ok {
			h.LTP = p
		}
		out = append(out, h)
	}
	return out, nil
}

// GetQuote returns the fixed price or asks the quote source
func (b *PaperBroker) GetQuote(ctx context.Context, inst contracts.Instrument) (*contracts.Quote, error) {
	b.mu.Lock()
	p, ok := b.prices[strings.ToUpper(inst.Symbol)]
	b.mu.Unlock()
	if ok {
		return &contracts.Quote{Symbol: inst.Symbol, LTP: p, AsOf: b.clock.Now()}, nil
	}
	if b.quotes == nil {
		return nil, fmt.Errorf("paper broker: no price for %s", inst.Symbol)
	}
	return b.quotes.GetQuote(ctx, inst)
}

// GetFunds returns the simulated cash
func (b *PaperBroker) GetFunds(ctx context.Context) (*contracts.Funds, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &contracts.Funds{AvailableCash: b.cash}, nil
}

// PlaceOrder fills the order immediately at the current quote
func (b *PaperBroker) PlaceOrder(ctx context.Context, spec contracts.OrderSpec) (string, error) {
	b.mu.Lock()
	b.PlaceOrderCalls++
	failure := b.FailOrders
	b.mu.Unlock()
	if failure != nil {
		return "", failure
	}

	q, err := b.GetQuote(ctx, spec.Instrument)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sym := strings.ToUpper(spec.Instrument.Symbol)
	qty := decimal.NewFromInt(spec.Quantity)
	value := q.LTP.Mul(qty)
	h := b.holdings[sym]
	h.Symbol, h.Exchange, h.LTP = sym, spec.Instrument.Exchange, q.LTP

	switch spec.Side {
	case contracts.OrderSideBuy:
		if value.GreaterThan(b.cash) {
			return "", fmt.Errorf("paper broker: insufficient funds for %s", sym)
		}
		cost := h.AvgPrice.Mul(decimal.NewFromInt(h.Quantity)).Add(value)
		h.Quantity += spec.Quantity
		h.AvgPrice = cost.Div(decimal.NewFromInt(h.Quantity)).Round(4)
		b.cash = b.cash.Sub(value)
	case contracts.OrderSideSell:
		if h.Quantity < spec.Quantity {
			return "", fmt.Errorf("paper broker: cannot sell %d %s, holding %d", spec.Quantity, sym, h.Quantity)
		}
		h.Quantity -= spec.Quantity
		b.cash = b.cash.Add(value)
	default:
		return "", fmt.Errorf("paper broker: unknown side %q", spec.Side)
	}

	if h.Quantity == 0 {
		delete(b.holdings, sym)
	} else {
		b.holdings[sym] = h
	}

	b.seq++
	return fmt.Sprintf("PAPER-%s-%06d", b.clock.Now().Format("20060102"), b.seq), nil
}

package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Ledger applies the state changes the policy engine owns: SIP schedule
// advancement, position updates after fills, and balance reservations.
// ⭐ SSOT: ReservedBalance 생성/해제는 여기서만
type Ledger struct {
	watchlist    contracts.WatchlistRepository
	reservations contracts.ReservationRepository
	engine       *Engine
	clock        clock.Clock
	logger       *logger.Logger
}

// NewLedger creates a ledger
func NewLedger(
	watchlist contracts.WatchlistRepository,
	reservations contracts.ReservationRepository,
	engine *Engine,
	clk clock.Clock,
	log *logger.Logger,
) *Ledger {
	return &Ledger{
		watchlist:    watchlist,
		reservations: reservations,
		engine:       engine,
		clock:        clk,
		logger:       log.WithComponent("ledger"),
	}
}

// ActiveReservation returns the symbol's unreleased reservation or nil
func (l *Ledger) ActiveReservation(ctx context.Context, symbol string) (*contracts.ReservedBalance, error) {
	r, err := l.reservations.GetActive(ctx, symbol)
	if errors.Is(err, contracts.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", symbol, err)
	}
	return r, nil
}

// ActiveReservations lists all unreleased reservations
func (l *Ledger) ActiveReservations(ctx context.Context) ([]contracts.ReservedBalance, error) {
	return l.reservations.ListActive(ctx)
}

// AvailableCash is brokerage cash minus reservations held for other symbols
func (l *Ledger) AvailableCash(ctx context.Context, cash decimal.Decimal, symbol string) (decimal.Decimal, error) {
	active, err := l.reservations.ListActive(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list reservations: %w", err)
	}

	available := cash
	for _, r := range active {
		if strings.EqualFold(r.Symbol, symbol) {
			continue
		}
		available = available.Sub(r.ReservedAmount)
	}
	if available.IsNegative() {
		return decimal.Zero, nil
	}
	return available, nil
}

// AdvanceSIP persists the next due date
func (l *Ledger) AdvanceSIP(ctx context.Context, symbol string, next time.Time) error {
	if err := l.watchlist.SetNextActionDate(ctx, symbol, next); err != nil {
		return fmt.Errorf("advance sip %s: %w", symbol, err)
	}
	l.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"next":   next.Format(time.RFC3339),
	}).Info("SIP schedule advanced")
	return nil
}

// Settle records the consequences of a filled order
func (l *Ledger) Settle(ctx context.Context, item *contracts.WatchlistItem, state contracts.AccountState, intent Intent, orderID string) error {
	if !intent.HasOrder() {
		return nil
	}
	order := intent.Order

	switch p := intent.Plan.(type) {
	case SIPPlan, BuyPlan:
		qty, avg := addToPosition(state.Quantity, state.AvgPrice, order.Quantity, order.Price)
		return l.watchlist.SetPosition(ctx, item.Symbol, qty, avg)

	case SellPlan:
		if err := l.watchlist.Delete(ctx, item.Symbol); err != nil && !errors.Is(err, contracts.ErrNotFound) {
			return fmt.Errorf("remove sold item %s: %w", item.Symbol, err)
		}
		return nil

	case ExitReenterPlan:
		if p.Phase == contracts.PhaseReentry {
			return l.settleReentry(ctx, item, order)
		}
		return l.settleExit(ctx, item, state, intent, orderID)
	}
	return nil
}

func (l *Ledger) settleExit(ctx context.Context, item *contracts.WatchlistItem, state contracts.AccountState, intent Intent, orderID string) error {
	order := intent.Order
	gross := order.Value()
	costBasis := state.AvgPrice.Mul(decimal.NewFromInt(order.Quantity)).Round(2)

	r := &contracts.ReservedBalance{
		Symbol:         item.Symbol,
		ReservedAmount: gross.Sub(intent.Charges.Total).Round(2),
		Quantity:       order.Quantity,
		ExitPrice:      order.Price,
		CostBasis:      costBasis,
		ExitCharges:    intent.Charges.Total,
		OrderID:        orderID,
		CreatedAt:      l.clock.Now(),
	}
	r.TargetReentryCondition = ReentryCondition(r)

	if err := l.reservations.Create(ctx, r); err != nil {
		return fmt.Errorf("create reservation %s: %w", item.Symbol, err)
	}
	if err := l.watchlist.SetPosition(ctx, item.Symbol, 0, state.AvgPrice); err != nil {
		return fmt.Errorf("clear position %s: %w", item.Symbol, err)
	}

	l.logger.WithFields(map[string]interface{}{
		"symbol":   item.Symbol,
		"reserved": r.ReservedAmount.StringFixed(2),
		"basis":    r.CostBasis.StringFixed(2),
	}).Info("Balance reserved")
	return nil
}

func (l *Ledger) settleReentry(ctx context.Context, item *contracts.WatchlistItem, order *contracts.OrderSpec) error {
	if err := l.reservations.Release(ctx, item.Symbol, l.clock.Now()); err != nil {
		return fmt.Errorf("release reservation %s: %w", item.Symbol, err)
	}
	if err := l.watchlist.SetPosition(ctx, item.Symbol, order.Quantity, order.Price); err != nil {
		return fmt.Errorf("set position %s: %w", item.Symbol, err)
	}

	l.logger.WithField("symbol", item.Symbol).Info("Reservation released on re-entry")
	return nil
}

// Cancel releases a reservation on operator request
func (l *Ledger) Cancel(ctx context.Context, symbol string) error {
	if err := l.reservations.Release(ctx, strings.ToUpper(symbol), l.clock.Now()); err != nil {
		return err
	}
	l.logger.WithField("symbol", symbol).Info("Reservation cancelled")
	return nil
}

// ReentryCondition describes the re-entry threshold for operators
func ReentryCondition(r *contracts.ReservedBalance) string {
	return fmt.Sprintf("net gain of reserved %s after re-entry charges over cost basis %s >= minimum_gain_threshold_percent",
		r.ReservedAmount.StringFixed(2), r.CostBasis.StringFixed(2))
}

// addToPosition returns the weighted average after adding qty at price
func addToPosition(heldQty int64, heldAvg decimal.Decimal, qty int64, price decimal.Decimal) (int64, decimal.Decimal) {
	total := heldQty + qty
	if total <= 0 {
		return 0, decimal.Zero
	}
	if heldQty <= 0 {
		return total, price
	}
	cost := heldAvg.Mul(decimal.NewFromInt(heldQty)).Add(price.Mul(decimal.NewFromInt(qty)))
	return total, cost.Div(decimal.NewFromInt(total)).Round(4)
}

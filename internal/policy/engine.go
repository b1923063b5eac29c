package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// =============================================================================
// Policy Engine - 액션별 결정론적 규칙
// =============================================================================

var hundred = decimal.NewFromInt(100)

// Intent is the engine's deterministic output for one item.
// Order is nil when policy denies; Reason then says why.
type Intent struct {
	Plan    Plan                 `json:"-"`
	Order   *contracts.OrderSpec `json:"order,omitempty"`
	Reason  string               `json:"reason"`
	Charges Breakdown            `json:"charges"`
}

// HasOrder reports whether an order spec was produced
func (i Intent) HasOrder() bool {
	return i.Order != nil
}

// Engine applies one rule set per action
// ⭐ SSOT: 매매 규칙(임계값, 수량 계산)은 여기서만
type Engine struct {
	charges Schedule
	logger  *logger.Logger
}

// NewEngine creates a policy engine
func NewEngine(charges Schedule, log *logger.Logger) *Engine {
	return &Engine{
		charges: charges,
		logger:  log.WithComponent("policy"),
	}
}

// Charges exposes the charge schedule used for simulations
func (e *Engine) Charges() Schedule {
	return e.charges
}

// Evaluate produces the intended order for a plan. It does not look at the
// advisory verdict; executability is the execution gate's concern.
// SIP plans are assumed due.
func (e *Engine) Evaluate(
	plan Plan,
	item *contracts.WatchlistItem,
	state contracts.AccountState,
	cfg *contracts.BotConfig,
) Intent {
	var intent Intent

	switch p := plan.(type) {
	case HoldPlan:
		intent = deny(p, "observe only")
	case SIPPlan:
		intent = e.evaluateSIP(p, item, state)
	case BuyPlan:
		intent = e.evaluateBuy(p, item, state)
	case SellPlan:
		intent = e.evaluateSell(p, item, state, cfg)
	case ExitReenterPlan:
		intent = e.evaluateExitReenter(p, item, state, cfg)
	default:
		intent = deny(plan, fmt.Sprintf("unsupported plan %T", plan))
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":    item.Symbol,
		"action":    plan.Action(),
		"has_order": intent.HasOrder(),
		"reason":    intent.Reason,
	}).Debug("Policy evaluated")
	return intent
}

func (e *Engine) evaluateSIP(p SIPPlan, item *contracts.WatchlistItem, state contracts.AccountState) Intent {
	if !state.LTP.IsPositive() {
		return deny(p, "no current price")
	}

	qty := p.Amount.Div(state.LTP).Floor().IntPart()
	if qty <= 0 {
		return deny(p, fmt.Sprintf("sip amount %s buys zero units at %s", p.Amount.StringFixed(2), state.LTP.StringFixed(2)))
	}

	return e.order(p, item, contracts.OrderSideBuy, qty, state.LTP,
		fmt.Sprintf("sip instalment of %s", p.Amount.StringFixed(2)))
}

func (e *Engine) evaluateBuy(p BuyPlan, item *contracts.WatchlistItem, state contracts.AccountState) Intent {
	if p.Quantity <= 0 {
		return deny(p, "buy quantity must be positive")
	}
	if !state.LTP.IsPositive() {
		return deny(p, "no current price")
	}
	return e.order(p, item, contracts.OrderSideBuy, p.Quantity, state.LTP, "one-time buy")
}

func (e *Engine) evaluateSell(p SellPlan, item *contracts.WatchlistItem, state contracts.AccountState, cfg *contracts.BotConfig) Intent {
	if state.Quantity <= 0 {
		return deny(p, "no position to sell")
	}
	if !state.HasCostBasis() {
		return deny(p, "average price unknown, P&L undefined")
	}

	ok, reason := SellAllowed(state, cfg)
	if !ok {
		return deny(p, reason)
	}
	return e.order(p, item, contracts.OrderSideSell, state.Quantity, state.LTP, reason)
}

// SellAllowed applies the profit threshold and the tax-harvesting override
func SellAllowed(state contracts.AccountState, cfg *contracts.BotConfig) (bool, string) {
	if !state.HasCostBasis() {
		return false, "average price unknown, P&L undefined"
	}

	gain := state.UnrealizedPnLPercent()
	if gain.GreaterThanOrEqual(cfg.ProfitThresholdPercent) {
		return true, fmt.Sprintf("gain %s%% meets target %s%%", gain.StringFixed(2), cfg.ProfitThresholdPercent.String())
	}

	pnl := state.UnrealizedPnL()
	if cfg.EnableTaxHarvesting && pnl.IsNegative() && pnl.Abs().GreaterThanOrEqual(cfg.TaxHarvestingLossSlab) {
		return true, fmt.Sprintf("tax-loss harvest: loss %s meets slab %s", pnl.Abs().StringFixed(2), cfg.TaxHarvestingLossSlab.StringFixed(2))
	}

	return false, fmt.Sprintf("gain %s%% below target %s%%", gain.StringFixed(2), cfg.ProfitThresholdPercent.String())
}

func (e *Engine) evaluateExitReenter(p ExitReenterPlan, item *contracts.WatchlistItem, state contracts.AccountState, cfg *contracts.BotConfig) Intent {
	if p.Phase != contracts.PhaseReentry {
		if state.Quantity <= 0 {
			return deny(p, "no position to exit")
		}
		if !state.LTP.IsPositive() {
			return deny(p, "no current price")
		}
		return e.order(p, item, contracts.OrderSideSell, state.Quantity, state.LTP, "exit leg")
	}

	r := p.Reservation
	if r == nil {
		return deny(p, "re-entry without reservation")
	}
	if !state.LTP.IsPositive() {
		return deny(p, "no current price")
	}

	gain, ok := e.ReentryGainPercent(r)
	if !ok {
		return deny(p, "cost basis unknown, re-entry gain undefined")
	}
	if gain.LessThan(cfg.MinimumGainThresholdPercent) {
		return deny(p, fmt.Sprintf("net gain %s%% below minimum %s%%", gain.StringFixed(2), cfg.MinimumGainThresholdPercent.String()))
	}

	qty := r.ReservedAmount.Div(state.LTP).Floor().IntPart()
	if qty <= 0 {
		return deny(p, "reserved amount buys zero units")
	}
	return e.order(p, item, contracts.OrderSideBuy, qty, state.LTP,
		fmt.Sprintf("re-entry: net gain %s%%", gain.StringFixed(2)))
}

// ReentryGainPercent is (reserved - reentry charges - cost basis) / cost basis * 100.
// ok is false when the cost basis is not positive.
func (e *Engine) ReentryGainPercent(r *contracts.ReservedBalance) (decimal.Decimal, bool) {
	if !r.CostBasis.IsPositive() {
		return decimal.Zero, false
	}
	reentry := e.charges.Compute(contracts.OrderSideBuy, r.ReservedAmount).Total
	net := r.ReservedAmount.Sub(reentry).Sub(r.CostBasis)
	return net.Div(r.CostBasis).Mul(hundred), true
}

func (e *Engine) order(p Plan, item *contracts.WatchlistItem, side contracts.OrderSide, qty int64, price decimal.Decimal, reason string) Intent {
	spec := &contracts.OrderSpec{
		Instrument: item.Instrument(),
		Side:       side,
		Quantity:   qty,
		Price:      price,
	}
	return Intent{
		Plan:    p,
		Order:   spec,
		Reason:  reason,
		Charges: e.charges.Compute(side, spec.Value()),
	}
}

func deny(p Plan, reason string) Intent {
	return Intent{Plan: p, Reason: reason}
}

package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Plan is the closed per-action variant the engine switches on.
// Only the types in this file implement it.
type Plan interface {
	Action() contracts.Action
	isPlan()
}

// HoldPlan observes only
type HoldPlan struct{}

// SIPPlan invests a fixed amount every FrequencyDays
type SIPPlan struct {
	Amount         decimal.Decimal
	FrequencyDays  int
	NextActionDate *time.Time
}

// BuyPlan buys a fixed quantity once
type BuyPlan struct {
	Quantity int64
}

// SellPlan exits the whole position subject to thresholds
type SellPlan struct{}

// ExitReenterPlan sells, parks the proceeds, and buys back later
type ExitReenterPlan struct {
	Phase       contracts.ExitPhase
	Reservation *contracts.ReservedBalance
}

func (HoldPlan) Action() contracts.Action        { return contracts.ActionHold }
func (SIPPlan) Action() contracts.Action         { return contracts.ActionSIP }
func (BuyPlan) Action() contracts.Action         { return contracts.ActionBuy }
func (SellPlan) Action() contracts.Action        { return contracts.ActionSell }
func (ExitReenterPlan) Action() contracts.Action { return contracts.ActionExitAndReenter }

func (HoldPlan) isPlan()        {}
func (SIPPlan) isPlan()         {}
func (BuyPlan) isPlan()         {}
func (SellPlan) isPlan()        {}
func (ExitReenterPlan) isPlan() {}

// PlanFor converts a watchlist item into its plan. reservation is the
// item's active reservation, if any.
func PlanFor(item *contracts.WatchlistItem, reservation *contracts.ReservedBalance) Plan {
	switch item.Action {
	case contracts.ActionSIP:
		return SIPPlan{
			Amount:         item.SIPAmount,
			FrequencyDays:  item.SIPFrequencyDays,
			NextActionDate: item.NextActionDate,
		}
	case contracts.ActionBuy:
		return BuyPlan{Quantity: item.Quantity}
	case contracts.ActionSell:
		return SellPlan{}
	case contracts.ActionExitAndReenter:
		if reservation != nil && reservation.Active() {
			return ExitReenterPlan{Phase: contracts.PhaseReentry, Reservation: reservation}
		}
		return ExitReenterPlan{Phase: contracts.PhaseExit}
	default:
		return HoldPlan{}
	}
}

// Phase returns the exit phase for EXIT_AND_REENTER plans, empty otherwise
func Phase(p Plan) contracts.ExitPhase {
	if er, ok := p.(ExitReenterPlan); ok {
		return er.Phase
	}
	return ""
}

// NextDue reports whether a SIP is due at now and the date it advances to.
// A due SIP moves exactly one frequency past now, whatever the stale date was.
func NextDue(prev *time.Time, frequencyDays int, now time.Time) (bool, time.Time) {
	if prev != nil && now.Before(*prev) {
		return false, *prev
	}

	days := frequencyDays
	if days <= 0 {
		days = 1
	}
	next := now.AddDate(0, 0, days)
	return true, next
}

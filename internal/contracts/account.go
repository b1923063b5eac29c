package contracts

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ExitPhase tells which leg of an EXIT_AND_REENTER cycle is pending
type ExitPhase string

const (
	PhaseExit    ExitPhase = "EXIT"    // position held, no reservation
	PhaseReentry ExitPhase = "REENTRY" // reservation active, awaiting re-entry
)

// AccountState is the holding and cash view for one item in one run
type AccountState struct {
	Quantity      int64           `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	LTP           decimal.Decimal `json:"ltp"`
	AvailableCash decimal.Decimal `json:"available_cash"` // net of other symbols' reservations

	// Set only for EXIT_AND_REENTER items
	Phase       ExitPhase        `json:"phase,omitempty"`
	Reservation *ReservedBalance `json:"reservation,omitempty"`
}

// UnrealizedPnL is (ltp - avg) * quantity
func (s AccountState) UnrealizedPnL() decimal.Decimal {
	return s.LTP.Sub(s.AvgPrice).Mul(decimal.NewFromInt(s.Quantity))
}

// UnrealizedPnLPercent is (ltp - avg) / avg * 100, or zero when avg <= 0
func (s AccountState) UnrealizedPnLPercent() decimal.Decimal {
	if !s.AvgPrice.IsPositive() {
		return decimal.Zero
	}
	return s.LTP.Sub(s.AvgPrice).Div(s.AvgPrice).Mul(hundred)
}

// HasCostBasis reports whether P&L percent is defined
func (s AccountState) HasCostBasis() bool {
	return s.AvgPrice.IsPositive()
}

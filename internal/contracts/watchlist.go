package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Action is the per-instrument policy selector
type Action string

const (
	ActionHold           Action = "HOLD"
	ActionSIP            Action = "SIP"
	ActionBuy            Action = "BUY"
	ActionSell           Action = "SELL"
	ActionExitAndReenter Action = "EXIT_AND_REENTER"
)

// Actions lists every valid action in display order
var Actions = []Action{ActionHold, ActionSIP, ActionBuy, ActionSell, ActionExitAndReenter}

// ParseAction normalises s and rejects unknown actions
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Valid reports whether a is one of the known actions
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// WatchlistItem is one monitored instrument
// ⭐ SSOT: 감시 종목 레코드
type WatchlistItem struct {
	ID               int64           `json:"id"`
	Symbol           string          `json:"symbol"`
	Exchange         string          `json:"exchange"`
	InstrumentToken  string          `json:"instrument_token"`
	Action           Action          `json:"action"`
	SIPAmount        decimal.Decimal `json:"sip_amount"`
	SIPFrequencyDays int             `json:"sip_frequency_days"`
	NextActionDate   *time.Time      `json:"next_action_date,omitempty"`
	Quantity         int64           `json:"quantity"`
	AvgPrice         decimal.Decimal `json:"avg_price"`
	ProxyIndex       string          `json:"proxy_index,omitempty"`
	InstrumentType   string          `json:"instrument_type,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Instrument identifies the tradable the brokerage quotes and fills
func (w *WatchlistItem) Instrument() Instrument {
	return Instrument{Symbol: w.Symbol, Exchange: w.Exchange, Token: w.InstrumentToken}
}

// Normalize upper-cases identifiers and fills the default exchange
func (w *WatchlistItem) Normalize(defaultExchange string) {
	w.Symbol = strings.ToUpper(strings.TrimSpace(w.Symbol))
	w.Exchange = strings.ToUpper(strings.TrimSpace(w.Exchange))
	if w.Exchange == "" {
		w.Exchange = defaultExchange
	}
	w.ProxyIndex = strings.TrimSpace(w.ProxyIndex)
}

// Validate checks per-action payload requirements
func (w *WatchlistItem) Validate() error {
	if w.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !w.Action.Valid() {
		return fmt.Errorf("unknown action %q", w.Action)
	}
	if w.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if w.AvgPrice.IsNegative() {
		return fmt.Errorf("avg_price must not be negative")
	}

	switch w.Action {
	case ActionSIP:
		if !w.SIPAmount.IsPositive() {
			return fmt.Errorf("sip_amount must be positive for SIP")
		}
		if w.SIPFrequencyDays <= 0 {
			return fmt.Errorf("sip_frequency_days must be positive for SIP")
		}
	case ActionBuy:
		if w.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive for BUY")
		}
	}
	return nil
}

// Instrument is the brokerage-facing identity of a symbol
type Instrument struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Token    string `json:"token,omitempty"`
}

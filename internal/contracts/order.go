package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderSpec is what the policy engine hands to the submitter
// ⭐ SSOT: Policy → Submitter 주문 정보 전달
type OrderSpec struct {
	Instrument Instrument      `json:"instrument"`
	Side       OrderSide       `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"` // reference price; orders are MARKET
}

// Value is quantity times reference price
func (o OrderSpec) Value() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Quantity))
}

// ExecutedOrder is a confirmed brokerage order
type ExecutedOrder struct {
	OrderID   string          `json:"order_id"`
	RunID     uuid.UUID       `json:"run_id"`
	Symbol    string          `json:"symbol"`
	Side      OrderSide       `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Holding is a demat position reported by the brokerage
type Holding struct {
	Symbol   string          `json:"symbol"`
	Exchange string          `json:"exchange"`
	Token    string          `json:"token,omitempty"`
	Quantity int64           `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	LTP      decimal.Decimal `json:"ltp"`
}

// Quote is a last-traded-price snapshot
type Quote struct {
	Symbol string          `json:"symbol"`
	LTP    decimal.Decimal `json:"ltp"`
	AsOf   time.Time       `json:"as_of"`
}

// Funds is the brokerage cash view
type Funds struct {
	AvailableCash decimal.Decimal `json:"available_cash"`
}

// ReservedBalance earmarks exit proceeds until the re-entry condition is met
// ⭐ SSOT: EXIT_AND_REENTER 예약 잔고
type ReservedBalance struct {
	ID                     int64           `json:"id"`
	Symbol                 string          `json:"symbol"`
	ReservedAmount         decimal.Decimal `json:"reserved_amount"`
	Quantity               int64           `json:"quantity"`
	ExitPrice              decimal.Decimal `json:"exit_price"`
	CostBasis              decimal.Decimal `json:"cost_basis"`
	ExitCharges            decimal.Decimal `json:"exit_charges"`
	TargetReentryCondition string          `json:"target_reentry_condition"`
	OrderID                string          `json:"order_id,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	ReleasedAt             *time.Time      `json:"released_at,omitempty"`
}

// Active reports whether the reservation still holds funds
func (r *ReservedBalance) Active() bool {
	return r.ReleasedAt == nil
}

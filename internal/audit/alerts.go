package audit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// ============================================================================
// Alert messages
// ============================================================================

// AuthFailureAlert is sent when the brokerage session cannot be established
func AuthFailureAlert(err error) string {
	return fmt.Sprintf("⚠️ Brokerage authentication failed: %v\nAutomatic trading is paused until login succeeds.", err)
}

// TradeConfirmation is sent after an order is placed
func TradeConfirmation(l *contracts.AnalysisLog) string {
	value := l.Price.Mul(decimal.NewFromInt(l.Quantity))
	return fmt.Sprintf(
		"✅ %s %d %s @ ₹%s (≈ ₹%s)\nAction: %s | Order: %s\n%s",
		l.OrderSide, l.Quantity, l.Symbol, l.Price.StringFixed(2), value.StringFixed(2),
		l.Action, l.OrderID, truncate(l.Rationale, 300),
	)
}

// WouldHaveExecuted is sent when the advisory approved but auto execution is off
func WouldHaveExecuted(symbol string, action contracts.Action, spec *contracts.OrderSpec, rationale string) string {
	order := ""
	if spec != nil {
		order = fmt.Sprintf(" %s %d @ ₹%s", spec.Side, spec.Quantity, spec.Price.StringFixed(2))
	}
	return fmt.Sprintf(
		"🔔 Signal for %s (%s):%s\nAuto execution is disabled; no order placed.\n%s",
		symbol, action, order, truncate(rationale, 300),
	)
}

// FailureAlert is sent when an approved order could not be placed
func FailureAlert(symbol string, err string) string {
	return fmt.Sprintf("❌ Order for %s failed: %s", symbol, err)
}

// SessionStreakAlert reports consecutive runs without a usable session status
func SessionStreakAlert(n int) string {
	return fmt.Sprintf("⚠️ Market session status unavailable for %d consecutive runs; automatic runs are not trading.", n)
}

// EnrichmentStreakAlert reports consecutive runs with missing market data
func EnrichmentStreakAlert(n int, fields []string) string {
	return fmt.Sprintf("⚠️ Market data enrichment incomplete for %d consecutive runs (missing: %s).", n, strings.Join(fields, ", "))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

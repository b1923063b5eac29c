package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/policy"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// PortfolioHandler serves brokerage holdings and balance reservations
type PortfolioHandler struct {
	broker contracts.BrokerageClient
	ledger *policy.Ledger
	logger *logger.Logger
}

// NewPortfolioHandler creates a portfolio handler
func NewPortfolioHandler(broker contracts.BrokerageClient, ledger *policy.Ledger, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{broker: broker, ledger: ledger, logger: log}
}

// ReservationView adds the operator-facing re-entry condition
type ReservationView struct {
	contracts.ReservedBalance
	Condition string `json:"condition"`
}

// Portfolio returns holdings, cash and reservations
// GET /api/portfolio
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holdings, err := h.broker.GetHoldings(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get holdings")
		respondError(w, http.StatusBadGateway, "Failed to retrieve holdings")
		return
	}
	if holdings == nil {
		holdings = []contracts.Holding{}
	}

	funds, err := h.broker.GetFunds(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get funds")
		respondError(w, http.StatusBadGateway, "Failed to retrieve funds")
		return
	}

	reservations, err := h.ledger.ActiveReservations(ctx)
	if err != nil {
		respondServiceError(w, h.logger, err, "reservations")
		return
	}

	reserved := decimal.Zero
	for _, rb := range reservations {
		reserved = reserved.Add(rb.ReservedAmount)
	}
	unreserved := funds.AvailableCash.Sub(reserved)
	if unreserved.IsNegative() {
		unreserved = decimal.Zero
	}

	marketValue := decimal.Zero
	for _, hd := range holdings {
		marketValue = marketValue.Add(hd.LTP.Mul(decimal.NewFromInt(hd.Quantity)))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"holdings":          holdings,
		"market_value":      marketValue.StringFixed(2),
		"available_cash":    funds.AvailableCash.StringFixed(2),
		"reserved_cash":     reserved.StringFixed(2),
		"unreserved_cash":   unreserved.StringFixed(2),
		"reservation_count": len(reservations),
	})
}

// Reservations lists active reservations
// GET /api/reservations
func (h *PortfolioHandler) Reservations(w http.ResponseWriter, r *http.Request) {
	active, err := h.ledger.ActiveReservations(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "reservations")
		return
	}

	views := make([]ReservationView, 0, len(active))
	for i := range active {
		views = append(views, ReservationView{
			ReservedBalance: active[i],
			Condition:       policy.ReentryCondition(&active[i]),
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reservations": views, "count": len(views)})
}

// CancelReservation releases a symbol's reservation
// DELETE /api/reservations/{symbol}
func (h *PortfolioHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Cancel(r.Context(), symbolVar(r)); err != nil {
		respondServiceError(w, h.logger, err, "reservation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/deadline"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// ErrInsufficientBalance is returned when a buy costs more than the available cash
var ErrInsufficientBalance = errors.New("insufficient balance")

// Request is one order submission
type Request struct {
	RunID     uuid.UUID
	Spec      contracts.OrderSpec
	Charges   decimal.Decimal // simulated charges added to buy cost
	Available decimal.Decimal // cash net of other symbols' reservations
}

// Submitter places orders with the brokerage and records fills
// ⭐ SSOT: 브로커 주문 제출은 여기서만
type Submitter struct {
	broker  contracts.BrokerageClient
	orders  contracts.OrderRepository
	timeout time.Duration
	clock   clock.Clock
	logger  *logger.Logger
}

// NewSubmitter creates a submitter. timeout bounds each placeOrder call.
func NewSubmitter(
	broker contracts.BrokerageClient,
	orders contracts.OrderRepository,
	timeout time.Duration,
	clk clock.Clock,
	log *logger.Logger,
) *Submitter {
	return &Submitter{
		broker:  broker,
		orders:  orders,
		timeout: timeout,
		clock:   clk,
		logger:  log.WithComponent("submitter"),
	}
}

// Submit places the order. Any error means the item is FAILED; the caller
// continues with the next item.
func (s *Submitter) Submit(ctx context.Context, req Request) (*contracts.ExecutedOrder, error) {
	spec := req.Spec
	log := s.logger.WithFields(map[string]interface{}{
		"run_id": req.RunID.String(),
		"symbol": spec.Instrument.Symbol,
		"side":   spec.Side,
		"qty":    spec.Quantity,
	})

	if spec.Quantity <= 0 {
		return nil, fmt.Errorf("refusing order with quantity %d", spec.Quantity)
	}

	if spec.Side == contracts.OrderSideBuy {
		cost := spec.Value().Add(req.Charges)
		if cost.GreaterThan(req.Available) {
			log.WithFields(map[string]interface{}{
				"cost":      cost.StringFixed(2),
				"available": req.Available.StringFixed(2),
			}).Warn("Order blocked by balance check")
			return nil, fmt.Errorf("%w: need %s, available %s", ErrInsufficientBalance, cost.StringFixed(2), req.Available.StringFixed(2))
		}
	}

	orderID, err := deadline.Call(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.broker.PlaceOrder(ctx, spec)
	})
	if err != nil {
		log.WithError(err).Error("Order submission failed")
		return nil, fmt.Errorf("place order: %w", err)
	}

	executed := &contracts.ExecutedOrder{
		OrderID:   orderID,
		RunID:     req.RunID,
		Symbol:    spec.Instrument.Symbol,
		Side:      spec.Side,
		Quantity:  spec.Quantity,
		Price:     spec.Price,
		CreatedAt: s.clock.Now(),
	}

	// the order is live at the broker; a bookkeeping failure must not turn it into FAILED
	if err := s.orders.Record(ctx, executed); err != nil {
		log.WithError(err).Error("Failed to record executed order")
	}

	log.WithField("order_id", orderID).Info("Order placed")
	return executed, nil
}

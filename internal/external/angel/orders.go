package angel

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// placeOrderRequest is a delivery MARKET order
type placeOrderRequest struct {
	Variety         string `json:"variety"`
	TradingSymbol   string `json:"tradingsymbol"`
	SymbolToken     string `json:"symboltoken"`
	TransactionType string `json:"transactiontype"`
	Exchange        string `json:"exchange"`
	OrderType       string `json:"ordertype"`
	ProductType     string `json:"producttype"`
	Duration        string `json:"duration"`
	Price           string `json:"price"`
	Quantity        string `json:"quantity"`
}

type placeOrderData struct {
	OrderID       string `json:"orderid"`
	UniqueOrderID string `json:"uniqueorderid"`
}

// PlaceOrder submits a MARKET delivery order and returns the brokerage order ID
func (c *Client) PlaceOrder(ctx context.Context, spec contracts.OrderSpec) (string, error) {
	if spec.Quantity <= 0 {
		return "", fmt.Errorf("place order: quantity must be positive")
	}

	body := placeOrderRequest{
		Variety:         "NORMAL",
		TradingSymbol:   tradingSymbol(spec.Instrument),
		SymbolToken:     spec.Instrument.Token,
		TransactionType: string(spec.Side),
		Exchange:        spec.Instrument.Exchange,
		OrderType:       "MARKET",
		ProductType:     "DELIVERY",
		Duration:        "DAY",
		Price:           "0",
		Quantity:        strconv.FormatInt(spec.Quantity, 10),
	}

	var data placeOrderData
	if err := c.secure(ctx, http.MethodPost, "/rest/secure/angelbroking/order/v1/placeOrder", body, &data); err != nil {
		return "", fmt.Errorf("place order %s: %w", spec.Instrument.Symbol, err)
	}
	if data.OrderID == "" {
		return "", fmt.Errorf("place order %s: empty order id", spec.Instrument.Symbol)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":   spec.Instrument.Symbol,
		"side":     spec.Side,
		"quantity": spec.Quantity,
		"order_id": data.OrderID,
	}).Info("Order placed")

	return data.OrderID, nil
}

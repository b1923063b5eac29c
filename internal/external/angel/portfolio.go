package angel

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// holdingRow is one entry of getAllHolding / getHolding
type holdingRow struct {
	TradingSymbol string          `json:"tradingsymbol"`
	Exchange      string          `json:"exchange"`
	SymbolToken   string          `json:"symboltoken"`
	Quantity      int64           `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"averageprice"`
	LTP           decimal.Decimal `json:"ltp"`
}

type ltpRequest struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

type ltpData struct {
	TradingSymbol string          `json:"tradingsymbol"`
	LTP           decimal.Decimal `json:"ltp"`
}

// rmsData carries RMS limits; SmartAPI sends amounts as strings
type rmsData struct {
	Net           decimal.NullDecimal `json:"net"`
	AvailableCash decimal.NullDecimal `json:"availablecash"`
}

// GetHoldings returns demat holdings
func (c *Client) GetHoldings(ctx context.Context) ([]contracts.Holding, error) {
	var rows []holdingRow
	if err := c.secure(ctx, http.MethodGet, "/rest/secure/angelbroking/portfolio/v1/getHolding", nil, &rows); err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}

	holdings := make([]contracts.Holding, 0, len(rows))
	for _, r := range rows {
		holdings = append(holdings, contracts.Holding{
			Symbol:   normalizeSymbol(r.TradingSymbol),
			Exchange: r.Exchange,
			Token:    r.SymbolToken,
			Quantity: r.Quantity,
			AvgPrice: r.AveragePrice,
			LTP:      r.LTP,
		})
	}
	return holdings, nil
}

// GetQuote returns the last traded price
func (c *Client) GetQuote(ctx context.Context, inst contracts.Instrument) (*contracts.Quote, error) {
	if inst.Token == "" {
		return nil, fmt.Errorf("quote %s: instrument token required", inst.Symbol)
	}

	body := ltpRequest{
		Exchange:      inst.Exchange,
		TradingSymbol: tradingSymbol(inst),
		SymbolToken:   inst.Token,
	}

	var data ltpData
	if err := c.secure(ctx, http.MethodPost, "/rest/secure/angelbroking/order/v1/getLtpData", body, &data); err != nil {
		return nil, fmt.Errorf("quote %s: %w", inst.Symbol, err)
	}
	if !data.LTP.IsPositive() {
		return nil, fmt.Errorf("quote %s: no last traded price", inst.Symbol)
	}

	return &contracts.Quote{
		Symbol: inst.Symbol,
		LTP:    data.LTP,
		AsOf:   c.clock.Now(),
	}, nil
}

// GetFunds returns available cash from RMS limits
func (c *Client) GetFunds(ctx context.Context) (*contracts.Funds, error) {
	var data rmsData
	if err := c.secure(ctx, http.MethodGet, "/rest/secure/angelbroking/user/v1/getRMS", nil, &data); err != nil {
		return nil, fmt.Errorf("funds: %w", err)
	}

	cash := decimal.Zero
	if data.AvailableCash.Valid {
		cash = data.AvailableCash.Decimal
	} else if data.Net.Valid {
		cash = data.Net.Decimal
	}
	return &contracts.Funds{AvailableCash: cash}, nil
}

// normalizeSymbol strips the "-EQ" series suffix
func normalizeSymbol(s string) string {
	return strings.TrimSuffix(strings.ToUpper(s), "-EQ")
}

// tradingSymbol adds the equity series suffix for NSE cash instruments
func tradingSymbol(inst contracts.Instrument) string {
	sym := strings.ToUpper(inst.Symbol)
	if inst.Exchange == "NSE" && !strings.Contains(sym, "-") {
		return sym + "-EQ"
	}
	return sym
}

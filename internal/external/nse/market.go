package nse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// capitalMarket is the equity cash segment in /api/marketStatus
const capitalMarket = "Capital Market"

type marketStatusResponse struct {
	MarketState []struct {
		Market              string `json:"market"`
		MarketStatus        string `json:"marketStatus"`
		TradeDate           string `json:"tradeDate"`
		MarketStatusMessage string `json:"marketStatusMessage"`
	} `json:"marketState"`
}

// MarketStatus returns the raw Capital Market status ("Open", "Closed", ...)
func (c *Client) MarketStatus(ctx context.Context) (string, error) {
	var resp marketStatusResponse
	if err := c.getJSON(ctx, "/api/marketStatus", &resp); err != nil {
		return "", fmt.Errorf("market status: %w", err)
	}

	for _, m := range resp.MarketState {
		if strings.EqualFold(m.Market, capitalMarket) {
			return m.MarketStatus, nil
		}
	}
	return "", fmt.Errorf("market status: %s segment not reported", capitalMarket)
}

// flexFloat accepts numbers, numeric strings and "-" placeholders
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "-" || s == "null" {
		f.Value = nil
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil // unparseable readings are treated as absent
	}
	f.Value = &v
	return nil
}

type allIndicesResponse struct {
	Data []struct {
		Index string    `json:"index"`
		Last  flexFloat `json:"last"`
		PE    flexFloat `json:"pe"`
		PB    flexFloat `json:"pb"`
		DY    flexFloat `json:"dy"`
	} `json:"data"`
}

// GetIndexValuation finds index in /api/allIndices. Exact name match wins over
// a substring match. A missing index is (nil, nil).
func (c *Client) GetIndexValuation(ctx context.Context, index string) (*contracts.IndexValuation, error) {
	var resp allIndicesResponse
	if err := c.getJSON(ctx, "/api/allIndices", &resp); err != nil {
		return nil, fmt.Errorf("all indices: %w", err)
	}

	want := strings.ToUpper(strings.TrimSpace(index))
	match := -1
	for i, row := range resp.Data {
		name := strings.ToUpper(row.Index)
		if name == want {
			match = i
			break
		}
		if match < 0 && strings.Contains(name, want) {
			match = i
		}
	}
	if match < 0 {
		c.logger.WithField("index", index).Warn("Index not found in allIndices")
		return nil, nil
	}

	row := resp.Data[match]
	return &contracts.IndexValuation{
		Index:         row.Index,
		Last:          row.Last.Value,
		PE:            row.PE.Value,
		PB:            row.PB.Value,
		DividendYield: row.DY.Value,
	}, nil
}

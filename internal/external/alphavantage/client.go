package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
	"github.com/wonny/autoinvest/backend/pkg/redis"
)

// KeyAPIKey is the SecretStore key of the Alpha Vantage key
const KeyAPIKey = "ALPHAVANTAGE_API_KEY"

// exchangeSuffix maps Indian listings to Alpha Vantage tickers
const exchangeSuffix = ".BSE"

// ErrThrottled is returned when the response carries a usage note instead of data
var ErrThrottled = errors.New("alphavantage: request throttled")

// Client fetches daily technical indicators
// ⭐ SSOT: Alpha Vantage 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	secrets    contracts.SecretStore
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates an Alpha Vantage client. limiter may be nil.
func NewClient(cfg config.AlphaVantageConfig, secrets contracts.SecretStore, httpClient *httputil.Client, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	if limiter != nil {
		httpClient = httpClient.WithRateLimiter(limiter, redis.AlphaVantageRateLimit)
	}
	return &Client{
		httpClient: httpClient,
		secrets:    secrets,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     log.WithComponent("alphavantage"),
	}
}

// series is one "Technical Analysis: X" block keyed by date
type series map[string]map[string]string

// latest returns the newest row's values
func (s series) latest() map[string]string {
	if len(s) == 0 {
		return nil
	}
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return s[dates[len(dates)-1]]
}

// indicatorQuery describes one function call
type indicatorQuery struct {
	function string
	params   url.Values
}

var queries = []indicatorQuery{
	{"RSI", url.Values{"time_period": {"14"}, "series_type": {"close"}}},
	{"MACD", url.Values{"series_type": {"close"}}},
	{"ADX", url.Values{"time_period": {"14"}}},
	{"BBANDS", url.Values{"time_period": {"20"}, "series_type": {"close"}}},
}

// GetIndicators fetches RSI14, MACD, ADX14 and Bollinger bands. Individual
// failures leave their fields nil; the call errors only when all fail.
func (c *Client) GetIndicators(ctx context.Context, symbol string) (*contracts.Indicators, error) {
	key, err := c.secrets.Get(ctx, KeyAPIKey)
	if err != nil {
		return nil, fmt.Errorf("alphavantage credential: %w", err)
	}

	out := &contracts.Indicators{}
	var lastErr error
	for _, q := range queries {
		row, err := c.fetch(ctx, key, symbol, q)
		if err != nil {
			lastErr = err
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol":   symbol,
				"function": q.function,
			}).Warn("Indicator fetch failed")
			if errors.Is(err, ErrThrottled) {
				break
			}
			continue
		}
		apply(out, q.function, row)
	}

	if out.Empty() {
		if lastErr == nil {
			lastErr = fmt.Errorf("no indicator data for %s", symbol)
		}
		return nil, lastErr
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, key, symbol string, q indicatorQuery) (map[string]string, error) {
	params := url.Values{}
	for k, v := range q.params {
		params[k] = v
	}
	params.Set("function", q.function)
	params.Set("symbol", ticker(symbol))
	params.Set("interval", "daily")
	params.Set("apikey", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var raw map[string]interface{}
	if err := c.httpClient.DoJSON(req, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", q.function, err)
	}

	if _, ok := raw["Note"]; ok {
		return nil, ErrThrottled
	}
	if _, ok := raw["Information"]; ok {
		return nil, ErrThrottled
	}
	if msg, ok := raw["Error Message"].(string); ok {
		return nil, fmt.Errorf("%s: %s", q.function, msg)
	}

	block, ok := raw["Technical Analysis: "+q.function].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: missing technical analysis block", q.function)
	}

	s := make(series, len(block))
	for date, v := range block {
		fields, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		row := make(map[string]string, len(fields))
		for name, val := range fields {
			if str, ok := val.(string); ok {
				row[name] = str
			}
		}
		s[date] = row
	}

	row := s.latest()
	if row == nil {
		return nil, fmt.Errorf("%s: empty series", q.function)
	}
	return row, nil
}

func apply(out *contracts.Indicators, function string, row map[string]string) {
	switch function {
	case "RSI":
		out.RSI14 = parse(row["RSI"])
	case "MACD":
		out.MACD = parse(row["MACD"])
		out.MACDSignal = parse(row["MACD_Signal"])
		out.MACDHist = parse(row["MACD_Hist"])
	case "ADX":
		out.ADX14 = parse(row["ADX"])
	case "BBANDS":
		out.BBUpper = parse(row["Real Upper Band"])
		out.BBMiddle = parse(row["Real Middle Band"])
		out.BBLower = parse(row["Real Lower Band"])
	}
}

func parse(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func ticker(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(s, ".") {
		return s
	}
	return s + exchangeSuffix
}

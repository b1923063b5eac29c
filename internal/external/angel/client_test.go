package angel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
	"github.com/wonny/autoinvest/backend/pkg/secrets"
)

const totpSecret = "JBSWY3DPEHPK3PXP"

// fakeSmartAPI serves the subset of SmartAPI the client uses
type fakeSmartAPI struct {
	mu        sync.Mutex
	logins    int
	lastTOTP  string
	lastOrder map[string]string
	rejectJWT string
	holdings  string
}

func (f *fakeSmartAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, data interface{}) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": true, "message": "SUCCESS", "data": data})
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "api-key", r.Header.Get("X-PrivateKey"))
			f.mu.Lock()
			reject := f.rejectJWT
			f.mu.Unlock()
			if r.Header.Get("Authorization") == "Bearer "+reject {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Invalid Token", "errorcode": "AG8001"})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/rest/auth/angelbroking/user/v1/loginByPassword", func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.logins++
		f.lastTOTP = body.TOTP
		n := f.logins
		f.mu.Unlock()

		if body.Password != "pw" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Invalid password", "errorcode": "AB1007"})
			return
		}
		write(w, loginData{JWTToken: "jwt-" + string(rune('0'+n)), RefreshToken: "r", FeedToken: "f"})
	})
	mux.HandleFunc("/rest/secure/angelbroking/portfolio/v1/getHolding", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"message":"SUCCESS","data":` + f.holdings + `}`))
	}))
	mux.HandleFunc("/rest/secure/angelbroking/order/v1/getLtpData", authed(func(w http.ResponseWriter, r *http.Request) {
		var body ltpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "RELIANCE-EQ", body.TradingSymbol)
		write(w, map[string]interface{}{"tradingsymbol": body.TradingSymbol, "ltp": 2450.55})
	}))
	mux.HandleFunc("/rest/secure/angelbroking/user/v1/getRMS", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]interface{}{"net": "150000.00", "availablecash": "120500.75"})
	}))
	mux.HandleFunc("/rest/secure/angelbroking/order/v1/placeOrder", authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.lastOrder = body
		f.mu.Unlock()
		write(w, placeOrderData{OrderID: "240302000000123"})
	}))
	return mux
}

func newTestClient(t *testing.T, password string) (*Client, *fakeSmartAPI, *clock.Fixed) {
	t.Helper()
	fake := &fakeSmartAPI{holdings: `[]`}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	store := secrets.NewEnvStore(map[string]string{
		KeyAPIKey:     "api-key",
		KeyClientID:   "C123",
		KeyPassword:   password,
		KeyTOTPSecret: totpSecret,
	})
	clk := clock.NewFixed(time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC))
	cfg := config.AngelConfig{BaseURL: srv.URL, Mode: "live", ClientIP: "127.0.0.1", MAC: "00:00:00:00:00:00"}

	c := NewClient(cfg, store, httputil.New(logger.NewNop()).DisableRetry(), clk, logger.NewNop())
	return c, fake, clk
}

func TestAuthenticateUsesTOTP(t *testing.T) {
	c, fake, clk := newTestClient(t, "pw")

	require.False(t, c.IsAuthenticated())
	require.NoError(t, c.Authenticate(context.Background()))
	assert.True(t, c.IsAuthenticated())

	want, err := totp.GenerateCode(totpSecret, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, want, fake.lastTOTP)

	clk.Advance(sessionTTL + time.Minute)
	assert.False(t, c.IsAuthenticated())
}

func TestAuthenticateFailure(t *testing.T) {
	c, _, _ := newTestClient(t, "wrong")

	err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid password")
	assert.False(t, c.IsAuthenticated())
}

func TestAuthenticateMissingCredential(t *testing.T) {
	c, fake, _ := newTestClient(t, "")

	err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, secrets.ErrNotFound)
	assert.Equal(t, 0, fake.logins)
}

func TestGetHoldings(t *testing.T) {
	c, fake, _ := newTestClient(t, "pw")
	fake.holdings = `[{"tradingsymbol":"RELIANCE-EQ","exchange":"NSE","symboltoken":"2885","quantity":12,"averageprice":2300.5,"ltp":2450.55}]`

	holdings, err := c.GetHoldings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	h := holdings[0]
	assert.Equal(t, "RELIANCE", h.Symbol)
	assert.Equal(t, "2885", h.Token)
	assert.Equal(t, int64(12), h.Quantity)
	assert.True(t, decimal.RequireFromString("2300.5").Equal(h.AvgPrice))
	assert.Equal(t, 1, fake.logins, "first secure call logs in")

	_, err = c.GetHoldings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.logins, "session reused")
}

func TestGetQuoteAndFunds(t *testing.T) {
	c, _, clk := newTestClient(t, "pw")

	q, err := c.GetQuote(context.Background(), contracts.Instrument{Symbol: "RELIANCE", Exchange: "NSE", Token: "2885"})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2450.55").Equal(q.LTP))
	assert.Equal(t, clk.Now(), q.AsOf)

	funds, err := c.GetFunds(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120500.75").Equal(funds.AvailableCash))
}

func TestGetQuoteRequiresToken(t *testing.T) {
	c, fake, _ := newTestClient(t, "pw")

	_, err := c.GetQuote(context.Background(), contracts.Instrument{Symbol: "RELIANCE", Exchange: "NSE"})
	assert.Error(t, err)
	assert.Equal(t, 0, fake.logins)
}

func TestPlaceOrder(t *testing.T) {
	c, fake, _ := newTestClient(t, "pw")

	id, err := c.PlaceOrder(context.Background(), contracts.OrderSpec{
		Instrument: contracts.Instrument{Symbol: "RELIANCE", Exchange: "NSE", Token: "2885"},
		Side:       contracts.OrderSideBuy,
		Quantity:   7,
		Price:      decimal.NewFromInt(2450),
	})
	require.NoError(t, err)
	assert.Equal(t, "240302000000123", id)

	assert.Equal(t, "BUY", fake.lastOrder["transactiontype"])
	assert.Equal(t, "MARKET", fake.lastOrder["ordertype"])
	assert.Equal(t, "DELIVERY", fake.lastOrder["producttype"])
	assert.Equal(t, "7", fake.lastOrder["quantity"])
	assert.Equal(t, "RELIANCE-EQ", fake.lastOrder["tradingsymbol"])
}

func TestRejectedTokenDropsSession(t *testing.T) {
	c, fake, _ := newTestClient(t, "pw")
	require.NoError(t, c.Authenticate(context.Background()))

	fake.mu.Lock()
	fake.rejectJWT = "jwt-1"
	fake.mu.Unlock()

	_, err := c.GetFunds(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, c.IsAuthenticated())

	// Next call logs in again with a new token
	_, err = c.GetFunds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fake.logins)
}

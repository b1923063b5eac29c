package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/internal/api/auth"
	"github.com/wonny/autoinvest/backend/internal/api/handlers"
	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/execution"
	"github.com/wonny/autoinvest/backend/internal/memstore"
	"github.com/wonny/autoinvest/backend/internal/policy"
	"github.com/wonny/autoinvest/backend/internal/scheduler"
	"github.com/wonny/autoinvest/backend/internal/watchlist"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeDispatcher struct {
	mu       sync.Mutex
	busy     bool
	triggers []contracts.TriggerType
}

func (f *fakeDispatcher) Trigger(ctx context.Context, trigger contracts.TriggerType) scheduler.Acceptance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return scheduler.Acceptance{Accepted: false, Reason: scheduler.ErrRunInProgress.Error()}
	}
	f.triggers = append(f.triggers, trigger)
	return scheduler.Acceptance{Accepted: true, RunID: "run-1"}
}

func (f *fakeDispatcher) Status() scheduler.Status {
	return scheduler.Status{Scheduled: true, Schedule: "daily at 09:30 IST"}
}

type fakeNotifier struct {
	msgs []string
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, message string) error {
	n.msgs = append(n.msgs, message)
	return n.err
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	store      *memstore.Store
	broker     *execution.PaperBroker
	dispatcher *fakeDispatcher
	notifier   *fakeNotifier
	configs    *botconfig.Service
	issuer     *auth.Issuer
	router     http.Handler
	changes    []contracts.BotConfig
}

func newHarness(t *testing.T, authCfg config.AuthConfig) *harness {
	t.Helper()
	log := logger.NewNop()
	clk := clock.NewFixed(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	h := &harness{
		store:      memstore.New(),
		dispatcher: &fakeDispatcher{},
		notifier:   &fakeNotifier{},
		issuer:     auth.NewIssuer(authCfg, nil),
	}
	h.broker = execution.NewPaperBroker(decimal.NewFromInt(100000), nil, clk)
	h.configs = botconfig.NewService(h.store.Config(), log)
	h.configs.OnChange(func(c contracts.BotConfig) { h.changes = append(h.changes, c) })

	engine := policy.NewEngine(policy.ScheduleFromConfig(config.ChargesConfig{}), log)
	ledger := policy.NewLedger(h.store.Watchlist(), h.store.Reservations(), engine, clk, log)

	h.router = NewRouter(Handlers{
		Auth:          handlers.NewAuthHandler(h.issuer, log),
		Run:           handlers.NewRunHandler(h.dispatcher, h.configs, h.broker, nil, "paper", log),
		Config:        handlers.NewConfigHandler(h.configs, log),
		Watchlist:     handlers.NewWatchlistHandler(watchlist.NewService(h.store.Watchlist(), "NSE", time.UTC, log), log),
		Logs:          handlers.NewLogsHandler(h.store.Logs(), log),
		Portfolio:     handlers.NewPortfolioHandler(h.broker, ledger, log),
		Notifications: handlers.NewNotificationHandler(h.notifier, time.Second, log),
	}, h.issuer, log)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// =============================================================================
// Tests
// =============================================================================

func TestHealth(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})
	rec := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestRunTrigger(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})

	rec := h.do(t, http.MethodPost, "/api/run", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, decode(t, rec)["accepted"])

	rec = h.do(t, http.MethodPost, "/api/run", map[string]bool{"manual": false})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []contracts.TriggerType{contracts.TriggerManual, contracts.TriggerAutomatic}, h.dispatcher.triggers)

	h.dispatcher.busy = true
	rec = h.do(t, http.MethodPost, "/api/run", map[string]bool{"manual": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "run already in progress", body["reason"])
}

func TestStatus(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})

	rec := h.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "paper", body["broker_mode"])
	assert.Equal(t, true, body["broker_authenticated"])
	assert.Equal(t, false, body["is_active"])
	assert.Equal(t, "daily at 09:30 IST", body["scheduler"].(map[string]interface{})["schedule"])
}

func TestConfigRoundTrip(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})

	rec := h.do(t, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "daily", decode(t, rec)["schedule_type"])

	doc := contracts.DefaultBotConfig()
	doc.IsActive = true
	doc.ScheduleType = contracts.ScheduleInterval
	doc.IntervalMinutes = 15

	rec = h.do(t, http.MethodPut, "/api/config", doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, h.changes, 1)
	assert.Equal(t, 15, h.changes[0].IntervalMinutes)

	stored, err := h.store.Config().Get(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestConfigRejectsInvalidDocument(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})

	doc := contracts.DefaultBotConfig()
	doc.ScheduleType = contracts.ScheduleInterval
	doc.IntervalMinutes = 0

	rec := h.do(t, http.MethodPut, "/api/config", doc)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "interval_minutes", decode(t, rec)["field"])
	assert.Empty(t, h.changes)

	rec = h.do(t, http.MethodPut, "/api/config", `{"is_active":true,"surprise":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchlistCRUD(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})

	item := map[string]interface{}{
		"symbol":             "infy",
		"action":             "SIP",
		"sip_amount":         "5000",
		"sip_frequency_days": 30,
	}
	rec := h.do(t, http.MethodPost, "/api/watchlist", item)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "INFY", decode(t, rec)["symbol"])

	rec = h.do(t, http.MethodPost, "/api/watchlist", item)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/watchlist", map[string]interface{}{"symbol": "TCS", "action": "SIP"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/watchlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = h.do(t, http.MethodPut, "/api/watchlist/infy", map[string]interface{}{"action": "HOLD"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/watchlist/INFY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HOLD", decode(t, rec)["action"])

	rec = h.do(t, http.MethodDelete, "/api/watchlist/INFY", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/watchlist/INFY", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogsListing(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})
	logs := h.store.Logs()
	for i := 0; i < 3; i++ {
		require.NoError(t, logs.InsertAnalysisLog(context.Background(), &contracts.AnalysisLog{Symbol: "TCS"}))
	}

	rec := h.do(t, http.MethodGet, "/api/logs?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])

	rec = h.do(t, http.MethodGet, "/api/market-state-logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])

	rec = h.do(t, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["runs"])
}

func TestPortfolioAndReservations(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})
	h.broker.SetHolding(contracts.Holding{Symbol: "TCS", Exchange: "NSE", Quantity: 10, AvgPrice: decimal.NewFromInt(3000)})
	h.broker.SetPrice("TCS", decimal.NewFromInt(3500))
	require.NoError(t, h.store.Reservations().Create(context.Background(), &contracts.ReservedBalance{
		Symbol:         "INFY",
		ReservedAmount: decimal.NewFromInt(40000),
		CostBasis:      decimal.NewFromInt(38000),
	}))

	rec := h.do(t, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "100000.00", body["available_cash"])
	assert.Equal(t, "40000.00", body["reserved_cash"])
	assert.Equal(t, "60000.00", body["unreserved_cash"])

	rec = h.do(t, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["reservations"].([]interface{})
	require.Len(t, list, 1)
	assert.Contains(t, list[0].(map[string]interface{})["condition"], "minimum_gain_threshold_percent")

	rec = h.do(t, http.MethodDelete, "/api/reservations/infy", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/reservations/INFY", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationTest(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})

	rec := h.do(t, http.MethodPost, "/api/notifications/test", map[string]string{"message": "ping"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ping"}, h.notifier.msgs)

	h.notifier.err = errors.New("chat not found")
	rec = h.do(t, http.MethodPost, "/api/notifications/test", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, strings.HasPrefix(h.notifier.msgs[1], "🔔"))
}

func TestAuthWall(t *testing.T) {
	h := newHarness(t, config.AuthConfig{JWTSecret: "s3cret", AdminPassword: "hunter2", TokenTTL: time.Hour})

	rec := h.do(t, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/auth/token", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/auth/token", map[string]string{"password": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	rec = h.do(t, http.MethodGet, "/api/status", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenEndpointWhenAuthDisabled(t *testing.T) {
	h := newHarness(t, config.AuthConfig{})
	rec := h.do(t, http.MethodPost, "/api/auth/token", map[string]string{"password": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

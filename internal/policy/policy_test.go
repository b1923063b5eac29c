package policy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/memstore"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func defaultSchedule() Schedule {
	return ScheduleFromConfig(config.ChargesConfig{
		BrokerageFlat:   20,
		BrokerageRate:   0.001,
		STTRate:         0.001,
		ExchangeTxnRate: 0.0000297,
		SEBIRate:        0.000001,
		StampDutyRate:   0.00015,
		GSTRate:         0.18,
		DPChargePerSell: 15.93,
	})
}

func newEngine() *Engine {
	return NewEngine(defaultSchedule(), logger.NewNop())
}

func botConfig(profit, minGain string) *contracts.BotConfig {
	cfg := contracts.DefaultBotConfig()
	cfg.ProfitThresholdPercent = dec(profit)
	cfg.MinimumGainThresholdPercent = dec(minGain)
	return &cfg
}

// =============================================================================
// Charges
// =============================================================================

func TestChargesBuy(t *testing.T) {
	b := defaultSchedule().Compute(contracts.OrderSideBuy, dec("5000"))

	assert.Equal(t, "5.00", b.Brokerage.StringFixed(2))
	assert.Equal(t, "5.00", b.STT.StringFixed(2))
	assert.Equal(t, "0.75", b.StampDuty.StringFixed(2))
	assert.True(t, b.DP.IsZero())
	assert.Equal(t, "0.93", b.GST.StringFixed(2))
	assert.Equal(t, "11.84", b.Total.StringFixed(2))
}

func TestChargesSellCapsBrokerage(t *testing.T) {
	b := defaultSchedule().Compute(contracts.OrderSideSell, dec("50000"))

	assert.Equal(t, "20.00", b.Brokerage.StringFixed(2))
	assert.Equal(t, "15.93", b.DP.StringFixed(2))
	assert.True(t, b.StampDuty.IsZero())
	assert.Equal(t, "91.35", b.Total.StringFixed(2))
}

func TestChargesZeroValue(t *testing.T) {
	b := defaultSchedule().Compute(contracts.OrderSideSell, decimal.Zero)
	assert.True(t, b.Total.IsZero())
}

// =============================================================================
// Plans and SIP schedule
// =============================================================================

func TestPlanFor(t *testing.T) {
	res := &contracts.ReservedBalance{Symbol: "X"}

	assert.IsType(t, HoldPlan{}, PlanFor(&contracts.WatchlistItem{Action: contracts.ActionHold}, nil))
	assert.IsType(t, SIPPlan{}, PlanFor(&contracts.WatchlistItem{Action: contracts.ActionSIP}, nil))
	assert.IsType(t, BuyPlan{}, PlanFor(&contracts.WatchlistItem{Action: contracts.ActionBuy}, nil))
	assert.IsType(t, SellPlan{}, PlanFor(&contracts.WatchlistItem{Action: contracts.ActionSell}, nil))

	exit := PlanFor(&contracts.WatchlistItem{Action: contracts.ActionExitAndReenter}, nil)
	assert.Equal(t, contracts.PhaseExit, Phase(exit))

	reentry := PlanFor(&contracts.WatchlistItem{Action: contracts.ActionExitAndReenter}, res)
	assert.Equal(t, contracts.PhaseReentry, Phase(reentry))
}

func TestNextDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	due, next := NextDue(nil, 30, now)
	assert.True(t, due)
	assert.Equal(t, now.AddDate(0, 0, 30), next)

	prev := now.Add(time.Hour)
	due, next = NextDue(&prev, 30, now)
	assert.False(t, due)
	assert.Equal(t, prev, next)

	prev = now
	due, next = NextDue(&prev, 7, now)
	assert.True(t, due)
	assert.Equal(t, now.AddDate(0, 0, 7), next)

	// stale date moves one frequency past now, not several steps from prev
	prev = now.AddDate(0, 0, -30)
	due, next = NextDue(&prev, 7, now)
	assert.True(t, due)
	assert.Equal(t, now.AddDate(0, 0, 7), next)
	assert.Equal(t, 7*24*time.Hour, next.Sub(now))
}

func TestNextDueIdempotentWithinMinute(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	prev := now.Add(-time.Minute)

	due, next := NextDue(&prev, 30, now)
	require.True(t, due)

	for i := 0; i < 5; i++ {
		again, stays := NextDue(&next, 30, now.Add(time.Duration(i)*time.Second))
		assert.False(t, again)
		assert.Equal(t, next, stays)
	}
}

// =============================================================================
// Engine
// =============================================================================

func TestSIPQuantity(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "NIFTYBEES", Exchange: "NSE", Action: contracts.ActionSIP, SIPAmount: dec("5000"), SIPFrequencyDays: 30}

	intent := e.Evaluate(PlanFor(item, nil), item, contracts.AccountState{LTP: dec("250")}, botConfig("5", "2"))
	require.True(t, intent.HasOrder())
	assert.Equal(t, int64(20), intent.Order.Quantity)
	assert.Equal(t, contracts.OrderSideBuy, intent.Order.Side)

	intent = e.Evaluate(PlanFor(item, nil), item, contracts.AccountState{LTP: dec("333")}, botConfig("5", "2"))
	assert.Equal(t, int64(15), intent.Order.Quantity)

	intent = e.Evaluate(PlanFor(item, nil), item, contracts.AccountState{LTP: dec("6000")}, botConfig("5", "2"))
	assert.False(t, intent.HasOrder())
	assert.Contains(t, intent.Reason, "zero units")

	intent = e.Evaluate(PlanFor(item, nil), item, contracts.AccountState{}, botConfig("5", "2"))
	assert.False(t, intent.HasOrder())
}

func TestBuyUsesFixedQuantity(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "TCS", Action: contracts.ActionBuy, Quantity: 10}

	intent := e.Evaluate(PlanFor(item, nil), item, contracts.AccountState{LTP: dec("4000")}, botConfig("5", "2"))
	require.True(t, intent.HasOrder())
	assert.Equal(t, int64(10), intent.Order.Quantity)
	assert.Equal(t, "40000", intent.Order.Value().String())
}

func TestHoldNeverOrders(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionHold, Quantity: 50}

	intent := e.Evaluate(PlanFor(item, nil), item, contracts.AccountState{Quantity: 50, AvgPrice: dec("100"), LTP: dec("500")}, botConfig("5", "2"))
	assert.False(t, intent.HasOrder())
	assert.Equal(t, "observe only", intent.Reason)
}

func TestSellThreshold(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionSell}

	state := contracts.AccountState{Quantity: 10, AvgPrice: dec("100"), LTP: dec("110")}
	intent := e.Evaluate(SellPlan{}, item, state, botConfig("15", "2"))
	assert.False(t, intent.HasOrder())
	assert.Contains(t, intent.Reason, "below target")

	// inclusive threshold
	intent = e.Evaluate(SellPlan{}, item, state, botConfig("10", "2"))
	require.True(t, intent.HasOrder())
	assert.Equal(t, int64(10), intent.Order.Quantity)
	assert.Equal(t, contracts.OrderSideSell, intent.Order.Side)
}

func TestSellRequiresPositionAndCostBasis(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionSell}

	intent := e.Evaluate(SellPlan{}, item, contracts.AccountState{AvgPrice: dec("100"), LTP: dec("200")}, botConfig("5", "2"))
	assert.False(t, intent.HasOrder())

	intent = e.Evaluate(SellPlan{}, item, contracts.AccountState{Quantity: 5, LTP: dec("200")}, botConfig("0", "2"))
	assert.False(t, intent.HasOrder())
}

func TestSellTaxHarvestingOverride(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "PAYTM", Action: contracts.ActionSell}
	state := contracts.AccountState{Quantity: 100, AvgPrice: dec("900"), LTP: dec("700")} // loss 20000

	cfg := botConfig("10", "2")
	intent := e.Evaluate(SellPlan{}, item, state, cfg)
	assert.False(t, intent.HasOrder())

	cfg.EnableTaxHarvesting = true
	cfg.TaxHarvestingLossSlab = dec("25000")
	intent = e.Evaluate(SellPlan{}, item, state, cfg)
	assert.False(t, intent.HasOrder())

	cfg.TaxHarvestingLossSlab = dec("20000")
	intent = e.Evaluate(SellPlan{}, item, state, cfg)
	require.True(t, intent.HasOrder())
	assert.Contains(t, intent.Reason, "tax-loss harvest")
}

// A sell order exists only if gain% >= threshold or the harvesting override holds
func TestSellPolicyProperty(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "X", Action: contracts.ActionSell}

	for _, avg := range []int64{50, 100, 333} {
		for _, ltp := range []int64{1, 40, 99, 100, 101, 115, 200, 400} {
			for _, threshold := range []int64{0, 5, 15, 100} {
				for _, harvest := range []bool{false, true} {
					state := contracts.AccountState{Quantity: 10, AvgPrice: decimal.NewFromInt(avg), LTP: decimal.NewFromInt(ltp)}
					cfg := botConfig(fmt.Sprint(threshold), "0")
					cfg.EnableTaxHarvesting = harvest
					cfg.TaxHarvestingLossSlab = dec("500")

					intent := e.Evaluate(SellPlan{}, item, state, cfg)

					gain := state.UnrealizedPnLPercent()
					loss := state.UnrealizedPnL().Neg()
					allowed := gain.GreaterThanOrEqual(cfg.ProfitThresholdPercent) ||
						(harvest && loss.IsPositive() && loss.GreaterThanOrEqual(cfg.TaxHarvestingLossSlab))

					assert.Equal(t, allowed, intent.HasOrder(), "avg=%d ltp=%d threshold=%d harvest=%v", avg, ltp, threshold, harvest)
				}
			}
		}
	}
}

func TestExitLeg(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "BANKBEES", Action: contracts.ActionExitAndReenter}
	state := contracts.AccountState{Quantity: 100, AvgPrice: dec("450"), LTP: dec("500")}

	intent := e.Evaluate(PlanFor(item, nil), item, state, botConfig("5", "2"))
	require.True(t, intent.HasOrder())
	assert.Equal(t, contracts.OrderSideSell, intent.Order.Side)
	assert.Equal(t, int64(100), intent.Order.Quantity)
	assert.Equal(t, "91.35", intent.Charges.Total.StringFixed(2))

	intent = e.Evaluate(PlanFor(item, nil), item, contracts.AccountState{LTP: dec("500")}, botConfig("5", "2"))
	assert.False(t, intent.HasOrder())
}

func TestReentryLeg(t *testing.T) {
	e := newEngine()
	item := &contracts.WatchlistItem{Symbol: "BANKBEES", Action: contracts.ActionExitAndReenter}
	res := &contracts.ReservedBalance{
		Symbol:         "BANKBEES",
		ReservedAmount: dec("49800"),
		CostBasis:      dec("45000"),
	}

	gain, ok := e.ReentryGainPercent(res)
	require.True(t, ok)
	assert.Equal(t, "10.48", gain.StringFixed(2))

	state := contracts.AccountState{LTP: dec("480"), Phase: contracts.PhaseReentry, Reservation: res}
	intent := e.Evaluate(PlanFor(item, res), item, state, botConfig("5", "2"))
	require.True(t, intent.HasOrder())
	assert.Equal(t, contracts.OrderSideBuy, intent.Order.Side)
	assert.Equal(t, int64(103), intent.Order.Quantity)

	intent = e.Evaluate(PlanFor(item, res), item, state, botConfig("5", "11"))
	assert.False(t, intent.HasOrder())
	assert.Contains(t, intent.Reason, "below minimum")

	_, ok = e.ReentryGainPercent(&contracts.ReservedBalance{ReservedAmount: dec("100")})
	assert.False(t, ok)
}

// =============================================================================
// Ledger
// =============================================================================

func newLedger(t *testing.T, now time.Time) (*Ledger, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewLedger(store.Watchlist(), store.Reservations(), newEngine(), clock.NewFixed(now), logger.NewNop()), store
}

func TestLedgerExitThenReentry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ledger, store := newLedger(t, now)
	e := newEngine()

	item := &contracts.WatchlistItem{Symbol: "BANKBEES", Exchange: "NSE", Action: contracts.ActionExitAndReenter, Quantity: 100, AvgPrice: dec("450")}
	require.NoError(t, store.Watchlist().Create(ctx, item))

	state := contracts.AccountState{Quantity: 100, AvgPrice: dec("450"), LTP: dec("500")}
	exit := e.Evaluate(PlanFor(item, nil), item, state, botConfig("5", "2"))
	require.NoError(t, ledger.Settle(ctx, item, state, exit, "ORD-1"))

	res, err := ledger.ActiveReservation(ctx, "BANKBEES")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "49908.65", res.ReservedAmount.StringFixed(2))
	assert.Equal(t, "45000.00", res.CostBasis.StringFixed(2))
	assert.Equal(t, "ORD-1", res.OrderID)

	stored, _ := store.Watchlist().Get(ctx, "BANKBEES")
	assert.Equal(t, int64(0), stored.Quantity)

	// other symbols see the reservation deducted, the owner does not
	avail, err := ledger.AvailableCash(ctx, dec("60000"), "NIFTYBEES")
	require.NoError(t, err)
	assert.Equal(t, "10091.35", avail.StringFixed(2))

	avail, err = ledger.AvailableCash(ctx, dec("60000"), "BANKBEES")
	require.NoError(t, err)
	assert.Equal(t, "60000.00", avail.StringFixed(2))

	reState := contracts.AccountState{LTP: dec("480"), Phase: contracts.PhaseReentry, Reservation: res}
	reentry := e.Evaluate(PlanFor(item, res), item, reState, botConfig("5", "2"))
	require.True(t, reentry.HasOrder())
	require.NoError(t, ledger.Settle(ctx, item, reState, reentry, "ORD-2"))

	res, err = ledger.ActiveReservation(ctx, "BANKBEES")
	require.NoError(t, err)
	assert.Nil(t, res)

	stored, _ = store.Watchlist().Get(ctx, "BANKBEES")
	assert.Equal(t, reentry.Order.Quantity, stored.Quantity)
	assert.Equal(t, "480", stored.AvgPrice.String())
}

func TestLedgerSellRemovesItem(t *testing.T) {
	ctx := context.Background()
	ledger, store := newLedger(t, time.Now())

	item := &contracts.WatchlistItem{Symbol: "INFY", Action: contracts.ActionSell, Quantity: 10, AvgPrice: dec("100")}
	require.NoError(t, store.Watchlist().Create(ctx, item))

	state := contracts.AccountState{Quantity: 10, AvgPrice: dec("100"), LTP: dec("120")}
	intent := newEngine().Evaluate(SellPlan{}, item, state, botConfig("10", "2"))
	require.NoError(t, ledger.Settle(ctx, item, state, intent, "ORD-9"))

	_, err := store.Watchlist().Get(ctx, "INFY")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestLedgerBuyAveragesPosition(t *testing.T) {
	ctx := context.Background()
	ledger, store := newLedger(t, time.Now())

	item := &contracts.WatchlistItem{Symbol: "NIFTYBEES", Action: contracts.ActionSIP, SIPAmount: dec("5000"), SIPFrequencyDays: 30, Quantity: 20, AvgPrice: dec("200")}
	require.NoError(t, store.Watchlist().Create(ctx, item))

	state := contracts.AccountState{Quantity: 20, AvgPrice: dec("200"), LTP: dec("250")}
	intent := newEngine().Evaluate(PlanFor(item, nil), item, state, botConfig("5", "2"))
	require.NoError(t, ledger.Settle(ctx, item, state, intent, "ORD-3"))

	stored, _ := store.Watchlist().Get(ctx, "NIFTYBEES")
	assert.Equal(t, int64(40), stored.Quantity)
	assert.Equal(t, "225", stored.AvgPrice.String())
}

func TestLedgerCancel(t *testing.T) {
	ctx := context.Background()
	ledger, store := newLedger(t, time.Now())

	require.NoError(t, store.Reservations().Create(ctx, &contracts.ReservedBalance{Symbol: "BANKBEES", ReservedAmount: dec("1000")}))
	require.NoError(t, ledger.Cancel(ctx, "bankbees"))

	res, err := ledger.ActiveReservation(ctx, "BANKBEES")
	require.NoError(t, err)
	assert.Nil(t, res)

	assert.ErrorIs(t, ledger.Cancel(ctx, "BANKBEES"), contracts.ErrNotFound)
}

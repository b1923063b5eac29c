package advisory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

type fakeLLM struct {
	reply  string
	err    error
	delay  time.Duration
	prompt string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.reply, f.err
}

func (f *fakeLLM) Model() string { return "fake-model" }

func f64(v float64) *float64 { return &v }

func sipItem() *contracts.WatchlistItem {
	return &contracts.WatchlistItem{
		Symbol:           "NIFTYBEES",
		Exchange:         "NSE",
		Action:           contracts.ActionSIP,
		SIPAmount:        decimal.NewFromInt(5000),
		SIPFrequencyDays: 30,
	}
}

func TestRequestVerdict(t *testing.T) {
	llm := &fakeLLM{reply: "EXECUTE\nSIP_AMOUNT: 4000\nFair value."}
	p := NewPipeline(llm, time.Second, logger.NewNop())

	cfg := contracts.DefaultBotConfig()
	cfg.AnalysisParameters = "Prefer index ETFs below 20 PE."

	v := p.RequestVerdict(context.Background(), sipItem(), contracts.AccountState{
		LTP:           decimal.NewFromInt(250),
		AvailableCash: decimal.NewFromInt(100000),
	}, contracts.Enrichment{}, &cfg)

	assert.Equal(t, contracts.DecisionExecute, v.Decision)
	assert.Equal(t, "fake-model", v.Model)
	assert.Contains(t, llm.prompt, "Prefer index ETFs below 20 PE.")
	assert.Contains(t, llm.prompt, "SIP_AMOUNT")
}

func TestRequestVerdictClientFailureDegradesToSkip(t *testing.T) {
	p := NewPipeline(&fakeLLM{err: errors.New("429 quota exceeded")}, time.Second, logger.NewNop())
	cfg := contracts.DefaultBotConfig()

	v := p.RequestVerdict(context.Background(), sipItem(), contracts.AccountState{}, contracts.Enrichment{}, &cfg)
	assert.Equal(t, contracts.DecisionSkip, v.Decision)
	assert.True(t, strings.HasPrefix(v.Rationale, "advisory unavailable: "))
}

func TestRequestVerdictTimeoutDegradesToSkip(t *testing.T) {
	p := NewPipeline(&fakeLLM{reply: "EXECUTE", delay: 300 * time.Millisecond}, 30*time.Millisecond, logger.NewNop())
	cfg := contracts.DefaultBotConfig()

	v := p.RequestVerdict(context.Background(), sipItem(), contracts.AccountState{}, contracts.Enrichment{}, &cfg)
	assert.Equal(t, contracts.DecisionSkip, v.Decision)
	assert.Contains(t, v.Rationale, "timed out")
}

func TestRequestVerdictParseFailure(t *testing.T) {
	p := NewPipeline(&fakeLLM{reply: "I cannot help with that."}, time.Second, logger.NewNop())
	cfg := contracts.DefaultBotConfig()

	v := p.RequestVerdict(context.Background(), sipItem(), contracts.AccountState{}, contracts.Enrichment{}, &cfg)
	assert.Equal(t, contracts.DecisionSkip, v.Decision)
	assert.Equal(t, RationaleParseFailure, v.Rationale)
}

func TestBuildPromptOmitsAbsentEnrichment(t *testing.T) {
	cfg := contracts.DefaultBotConfig()
	item := &contracts.WatchlistItem{Symbol: "INFY", Exchange: "NSE", Action: contracts.ActionSell}
	state := contracts.AccountState{
		Quantity: 10,
		AvgPrice: decimal.NewFromInt(100),
		LTP:      decimal.NewFromInt(110),
	}

	prompt := BuildPrompt(item, state, contracts.Enrichment{
		Indicators: &contracts.Indicators{RSI14: f64(61.5)},
	}, &cfg)

	assert.Contains(t, prompt, "RSI(14): 61.50")
	assert.NotContains(t, prompt, "ADX")
	assert.NotContains(t, prompt, "INDEX VALUATION")
	assert.NotContains(t, prompt, "SENTIMENT")
	assert.Contains(t, prompt, "Unrealized P&L: ₹100.00 (10.00%)")
	assert.Contains(t, prompt, "Profit target: 5%")
}

func TestBuildPromptReentryPhase(t *testing.T) {
	cfg := contracts.DefaultBotConfig()
	item := &contracts.WatchlistItem{Symbol: "BANKBEES", Exchange: "NSE", Action: contracts.ActionExitAndReenter}
	state := contracts.AccountState{
		LTP:   decimal.NewFromInt(480),
		Phase: contracts.PhaseReentry,
		Reservation: &contracts.ReservedBalance{
			ReservedAmount: decimal.NewFromInt(49800),
			ExitPrice:      decimal.NewFromInt(500),
			Quantity:       100,
			CostBasis:      decimal.NewFromInt(45000),
		},
	}

	prompt := BuildPrompt(item, state, contracts.Enrichment{
		Valuation: &contracts.IndexValuation{Index: "NIFTY BANK", PE: f64(14.2)},
		Sentiment: &contracts.Sentiment{Label: "Fear"},
	}, &cfg)

	assert.Contains(t, prompt, "Phase: RE-ENTRY")
	assert.Contains(t, prompt, "Reserved proceeds: ₹49800.00")
	assert.Contains(t, prompt, "INDEX VALUATION (NIFTY BANK)")
	assert.Contains(t, prompt, "MARKET SENTIMENT**: Fear")
}

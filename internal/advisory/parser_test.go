package advisory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     contracts.Decision
		wantRat  string
		contains string
	}{
		{"plain execute", "EXECUTE\nGood entry with RSI at 45.", contracts.DecisionExecute, "", "RSI at 45"},
		{"lowercase wait", "wait\nOverbought.", contracts.DecisionWait, "", "Overbought"},
		{"markdown bold", "**SKIP**\nWeak breadth.", contracts.DecisionSkip, "", "Weak breadth"},
		{"decision prefix", "Decision: **SELL**\nTarget reached.", contracts.DecisionSell, "", "Target reached"},
		{"heading", "## EXIT_AND_REENTER\nStretched valuation.", contracts.DecisionExitAndReenter, "", "Stretched"},
		{"leading prose", "Here is my analysis.\nHOLD\nNo edge.", contracts.DecisionHold, "", "Here is my analysis."},
		{"trailing punctuation", "EXECUTE.\nok", contracts.DecisionExecute, "", "ok"},
		{"empty", "", contracts.DecisionSkip, RationaleParseFailure, ""},
		{"whitespace", "  \n\t\n", contracts.DecisionSkip, RationaleParseFailure, ""},
		{"no vocabulary", "I think the market looks fine.\nBuy some.", contracts.DecisionSkip, RationaleParseFailure, ""},
		{"near miss", "EXECUTED yesterday", contracts.DecisionSkip, RationaleParseFailure, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseVerdict(tt.text, "gpt-test")
			assert.Equal(t, tt.want, v.Decision)
			assert.Equal(t, "gpt-test", v.Model)
			if tt.wantRat != "" {
				assert.Equal(t, tt.wantRat, v.Rationale)
			}
			if tt.contains != "" {
				assert.Contains(t, v.Rationale, tt.contains)
			}
		})
	}
}

func TestParseVerdictSIPAmount(t *testing.T) {
	v := ParseVerdict("EXECUTE\nSIP_AMOUNT: ₹5,000.50\nGood accumulation zone.", "m")

	assert.Equal(t, contracts.DecisionExecute, v.Decision)
	require.NotNil(t, v.SuggestedAmount)
	assert.Equal(t, "5000.5", v.SuggestedAmount.String())
	assert.NotContains(t, v.Rationale, "SIP_AMOUNT")
}

func TestParseVerdictFirstDecisionWins(t *testing.T) {
	v := ParseVerdict("WAIT\nEXECUTE next week maybe", "m")
	assert.Equal(t, contracts.DecisionWait, v.Decision)
	assert.Contains(t, v.Rationale, "EXECUTE next week")
}

func TestParseVerdictTruncatesRationale(t *testing.T) {
	v := ParseVerdict("SKIP\n"+strings.Repeat("x", 5000), "m")
	assert.Len(t, v.Rationale, maxRationale)
}

package advisory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// BuildPrompt renders the bounded advisory context for one item.
// Only enrichment fields that are present are included.
func BuildPrompt(
	item *contracts.WatchlistItem,
	state contracts.AccountState,
	enrich contracts.Enrichment,
	cfg *contracts.BotConfig,
) string {
	var b strings.Builder

	b.WriteString("You are an expert Indian equities analyst making a real-time trading decision.\n\n")

	// Instrument
	fmt.Fprintf(&b, "**SYMBOL**: %s (%s)\n", item.Symbol, item.Exchange)
	if item.InstrumentType != "" {
		fmt.Fprintf(&b, "**INSTRUMENT TYPE**: %s\n", item.InstrumentType)
	}
	fmt.Fprintf(&b, "**ACTION TO EVALUATE**: %s\n", item.Action)
	fmt.Fprintf(&b, "**CURRENT PRICE**: ₹%s\n", money(state.LTP))
	fmt.Fprintf(&b, "**AVAILABLE CASH**: ₹%s\n", money(state.AvailableCash))

	// Holding
	b.WriteString("\n**CURRENT HOLDING**:\n")
	if state.Quantity > 0 {
		fmt.Fprintf(&b, "- Quantity: %d\n", state.Quantity)
		fmt.Fprintf(&b, "- Average price: ₹%s\n", money(state.AvgPrice))
		if state.HasCostBasis() {
			fmt.Fprintf(&b, "- Unrealized P&L: ₹%s (%s%%)\n",
				money(state.UnrealizedPnL()), state.UnrealizedPnLPercent().StringFixed(2))
		}
	} else {
		b.WriteString("- No position\n")
	}

	writeActionBlock(&b, item, state, cfg)

	if params := strings.TrimSpace(cfg.AnalysisParameters); params != "" {
		b.WriteString("\n**OPERATOR ANALYSIS PARAMETERS**:\n")
		b.WriteString(params)
		b.WriteString("\n")
	}

	writeEnrichment(&b, enrich)
	writeResponseFormat(&b, item.Action)

	return b.String()
}

func writeActionBlock(b *strings.Builder, item *contracts.WatchlistItem, state contracts.AccountState, cfg *contracts.BotConfig) {
	switch item.Action {
	case contracts.ActionSIP:
		b.WriteString("\n**SIP CONFIGURATION**:\n")
		fmt.Fprintf(b, "- Configured SIP amount: ₹%s\n", money(item.SIPAmount))
		fmt.Fprintf(b, "- Frequency: every %d days\n", item.SIPFrequencyDays)
		b.WriteString("- This is a systematic investment plan instalment that is due now.\n")

	case contracts.ActionBuy:
		cost := state.LTP.Mul(decimal.NewFromInt(item.Quantity))
		b.WriteString("\n**ONE-TIME BUY**:\n")
		fmt.Fprintf(b, "- Quantity to buy: %d\n", item.Quantity)
		fmt.Fprintf(b, "- Estimated cost: ₹%s\n", money(cost))

	case contracts.ActionSell:
		b.WriteString("\n**SELL DECISION**:\n")
		fmt.Fprintf(b, "- Profit target: %s%%\n", cfg.ProfitThresholdPercent.String())
		if cfg.EnableTaxHarvesting {
			fmt.Fprintf(b, "- Tax-loss harvesting enabled for losses of at least ₹%s\n", money(cfg.TaxHarvestingLossSlab))
		}

	case contracts.ActionExitAndReenter:
		b.WriteString("\n**EXIT AND RE-ENTER CYCLE**:\n")
		if state.Phase == contracts.PhaseReentry && state.Reservation != nil {
			r := state.Reservation
			b.WriteString("- Phase: RE-ENTRY (position already sold)\n")
			fmt.Fprintf(b, "- Reserved proceeds: ₹%s\n", money(r.ReservedAmount))
			fmt.Fprintf(b, "- Exit price: ₹%s for %d shares\n", money(r.ExitPrice), r.Quantity)
			fmt.Fprintf(b, "- Prior cost basis: ₹%s\n", money(r.CostBasis))
		} else {
			b.WriteString("- Phase: EXIT (sell the position now, re-enter later)\n")
		}
		fmt.Fprintf(b, "- Minimum net gain to re-enter: %s%%\n", cfg.MinimumGainThresholdPercent.String())

	case contracts.ActionHold:
		b.WriteString("\n**HOLD**: observe only, no order will be placed.\n")
	}
}

func writeEnrichment(b *strings.Builder, e contracts.Enrichment) {
	if ind := e.Indicators; !ind.Empty() {
		b.WriteString("\n**TECHNICAL INDICATORS**:\n")
		optional(b, "RSI(14)", ind.RSI14)
		optional(b, "MACD", ind.MACD)
		optional(b, "MACD signal", ind.MACDSignal)
		optional(b, "MACD histogram", ind.MACDHist)
		optional(b, "ADX(14)", ind.ADX14)
		optional(b, "Bollinger upper", ind.BBUpper)
		optional(b, "Bollinger middle", ind.BBMiddle)
		optional(b, "Bollinger lower", ind.BBLower)
	}

	if v := e.Valuation; v != nil {
		fmt.Fprintf(b, "\n**INDEX VALUATION (%s)**:\n", v.Index)
		optional(b, "Level", v.Last)
		optional(b, "P/E", v.PE)
		optional(b, "P/B", v.PB)
		optional(b, "Dividend yield %", v.DividendYield)
	}

	if s := e.Sentiment; s != nil && s.Label != "" {
		fmt.Fprintf(b, "\n**MARKET SENTIMENT**: %s\n", s.Label)
	}
}

func writeResponseFormat(b *strings.Builder, action contracts.Action) {
	b.WriteString("\n**RESPOND WITH**:\n")
	switch action {
	case contracts.ActionSell:
		b.WriteString("Line 1: EXECUTE or SELL or WAIT or SKIP\n")
	case contracts.ActionExitAndReenter:
		b.WriteString("Line 1: EXECUTE or EXIT_AND_REENTER or WAIT or SKIP\n")
	case contracts.ActionHold:
		b.WriteString("Line 1: HOLD or SELL or WAIT\n")
	default:
		b.WriteString("Line 1: EXECUTE or WAIT or SKIP\n")
	}
	if action == contracts.ActionSIP {
		b.WriteString("Line 2: SIP_AMOUNT: <amount in rupees>\n")
	}
	b.WriteString("Following lines: brief reasoning (2-3 sentences)\n")
	b.WriteString("\nEXECUTE means strong conviction and favorable timing. ")
	b.WriteString("WAIT means neutral or needs confirmation. SKIP means poor conditions.\n")
}

func optional(b *strings.Builder, label string, v *float64) {
	if v != nil {
		fmt.Fprintf(b, "- %s: %.2f\n", label, *v)
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

package contracts

// Indicators are technical readings for one symbol. Nil fields were not available.
type Indicators struct {
	RSI14      *float64 `json:"rsi14,omitempty"`
	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	MACDHist   *float64 `json:"macd_hist,omitempty"`
	ADX14      *float64 `json:"adx14,omitempty"`
	BBUpper    *float64 `json:"bb_upper,omitempty"`
	BBMiddle   *float64 `json:"bb_middle,omitempty"`
	BBLower    *float64 `json:"bb_lower,omitempty"`
}

// Empty reports whether no reading is present
func (i *Indicators) Empty() bool {
	return i == nil || (i.RSI14 == nil && i.MACD == nil && i.ADX14 == nil && i.BBMiddle == nil)
}

// IndexValuation is the valuation snapshot of a market index
type IndexValuation struct {
	Index         string   `json:"index"`
	Last          *float64 `json:"last,omitempty"`
	PE            *float64 `json:"pe,omitempty"`
	PB            *float64 `json:"pb,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
}

// Sentiment is a market mood label scraped from a public page
type Sentiment struct {
	Label  string `json:"label"`
	Source string `json:"source"`
}

// Enrichment is best-effort advisory context. Each field is independently optional.
type Enrichment struct {
	Indicators *Indicators     `json:"indicators,omitempty"`
	Valuation  *IndexValuation `json:"valuation,omitempty"`
	Sentiment  *Sentiment      `json:"sentiment,omitempty"`
}

// Missing names the fields that could not be fetched
func (e Enrichment) Missing() []string {
	var out []string
	if e.Indicators.Empty() {
		out = append(out, "indicators")
	}
	if e.Valuation == nil {
		out = append(out, "valuation")
	}
	if e.Sentiment == nil {
		out = append(out, "sentiment")
	}
	return out
}

package contracts

import "github.com/shopspring/decimal"

// Decision is the closed advisory vocabulary
type Decision string

const (
	DecisionExecute        Decision = "EXECUTE"
	DecisionWait           Decision = "WAIT"
	DecisionSkip           Decision = "SKIP"
	DecisionSell           Decision = "SELL"
	DecisionHold           Decision = "HOLD"
	DecisionExitAndReenter Decision = "EXIT_AND_REENTER"

	// DecisionNone marks a log written without an advisory call (SIP not due)
	DecisionNone Decision = ""
)

// Decisions lists the parseable vocabulary
var Decisions = []Decision{
	DecisionExecute, DecisionWait, DecisionSkip,
	DecisionSell, DecisionHold, DecisionExitAndReenter,
}

// AdvisoryVerdict is the parsed result of one advisory call.
// Free text never travels past the advisory package except as Rationale.
type AdvisoryVerdict struct {
	Decision  Decision `json:"decision"`
	Rationale string   `json:"rationale"`
	Model     string   `json:"model"`

	// SuggestedAmount is an optional SIP amount hint, logged only
	SuggestedAmount *decimal.Decimal `json:"suggested_amount,omitempty"`
}

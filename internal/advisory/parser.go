package advisory

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// RationaleParseFailure marks a response that carried no decision
const RationaleParseFailure = "parse failure"

const maxRationale = 1000

var (
	leadingToken = regexp.MustCompile(`^[A-Z_]+`)
	amountLine   = regexp.MustCompile(`(?i)^SIP[_ ]AMOUNT\s*[:=]\s*(.*)$`)
	amountValue  = regexp.MustCompile(`[0-9][0-9,]*(\.[0-9]+)?`)
)

// ParseVerdict maps free text onto the closed decision vocabulary.
// The first line whose leading token is a known decision wins.
func ParseVerdict(text, model string) contracts.AdvisoryVerdict {
	verdict := contracts.AdvisoryVerdict{Decision: contracts.DecisionSkip, Model: model}

	found := false
	var rationale []string

	for _, raw := range strings.Split(text, "\n") {
		line := cleanLine(raw)
		if line == "" {
			continue
		}

		if m := amountLine.FindStringSubmatch(line); m != nil {
			if amt, ok := parseAmount(m[1]); ok {
				verdict.SuggestedAmount = &amt
			}
			continue
		}

		if !found {
			if d, ok := decisionOf(line); ok {
				verdict.Decision = d
				found = true
				continue
			}
		}

		rationale = append(rationale, line)
	}

	if !found {
		verdict.Rationale = RationaleParseFailure
		return verdict
	}

	verdict.Rationale = truncate(strings.Join(rationale, " "), maxRationale)
	return verdict
}

// cleanLine strips markdown decoration and list markers
func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#>-•* \t")
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	s = strings.Trim(s, "*\"' \t")
	return strings.TrimSpace(s)
}

func decisionOf(line string) (contracts.Decision, bool) {
	upper := strings.ToUpper(line)
	for _, prefix := range []string{"DECISION:", "DECISION -", "DECISION"} {
		if strings.HasPrefix(upper, prefix) {
			upper = strings.TrimSpace(upper[len(prefix):])
			break
		}
	}

	token := leadingToken.FindString(upper)
	for _, d := range contracts.Decisions {
		if token == string(d) {
			return d, true
		}
	}
	return "", false
}

func parseAmount(s string) (decimal.Decimal, bool) {
	m := amountValue.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package advisory

import (
	"context"
	"time"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/deadline"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Pipeline builds the advisory request, calls the model and parses the verdict
// ⭐ SSOT: 자유 텍스트는 이 패키지 밖으로 나가지 않음
type Pipeline struct {
	client  contracts.AdvisoryClient
	timeout time.Duration
	logger  *logger.Logger
}

// NewPipeline creates an advisory pipeline
func NewPipeline(client contracts.AdvisoryClient, timeout time.Duration, log *logger.Logger) *Pipeline {
	return &Pipeline{
		client:  client,
		timeout: timeout,
		logger:  log.WithComponent("advisory"),
	}
}

// RequestVerdict never fails: collaborator errors and unparseable text degrade to SKIP
func (p *Pipeline) RequestVerdict(
	ctx context.Context,
	item *contracts.WatchlistItem,
	state contracts.AccountState,
	enrich contracts.Enrichment,
	cfg *contracts.BotConfig,
) contracts.AdvisoryVerdict {
	model := p.client.Model()
	prompt := BuildPrompt(item, state, enrich, cfg)

	log := p.logger.WithFields(map[string]interface{}{
		"symbol": item.Symbol,
		"action": item.Action,
		"model":  model,
	})

	text, err := deadline.Call(ctx, p.timeout, func(ctx context.Context) (string, error) {
		return p.client.Complete(ctx, prompt)
	})
	if err != nil {
		log.WithError(err).Warn("Advisory call failed")
		return contracts.AdvisoryVerdict{
			Decision:  contracts.DecisionSkip,
			Rationale: "advisory unavailable: " + err.Error(),
			Model:     model,
		}
	}

	verdict := ParseVerdict(text, model)
	log = log.WithField("decision", verdict.Decision)
	if verdict.Rationale == RationaleParseFailure {
		log.Warn("Advisory response not parseable")
	} else {
		log.Info("Advisory verdict received")
	}
	return verdict
}

package botconfig

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Service applies configuration documents atomically and tells listeners
// (the scheduler, the event hub) about the new document.
type Service struct {
	repo contracts.ConfigRepository

	mu        sync.Mutex
	listeners []func(contracts.BotConfig)

	logger *logger.Logger
}

// NewService creates a config service
func NewService(repo contracts.ConfigRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log.WithComponent("botconfig")}
}

// OnChange registers fn to run after every successful update
func (s *Service) OnChange(fn func(contracts.BotConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns the stored document
func (s *Service) Get(ctx context.Context) (*contracts.BotConfig, error) {
	return s.repo.Get(ctx)
}

// Update validates and stores the whole document; nothing is written on
// validation failure
func (s *Service) Update(ctx context.Context, cfg *contracts.BotConfig) (*contracts.BotConfig, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}

	hash, _ := Hash(cfg)
	s.logger.WithFields(map[string]interface{}{
		"is_active":     cfg.IsActive,
		"auto_execute":  cfg.AutoExecuteTrades,
		"schedule_type": cfg.ScheduleType,
		"config_hash":   hash,
	}).Info("Bot config updated")

	for _, fn := range s.listeners {
		fn(*cfg)
	}
	return cfg, nil
}

package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Service validates watchlist edits before they reach the repository
type Service struct {
	repo            contracts.WatchlistRepository
	defaultExchange string
	location        *time.Location
	logger          *logger.Logger
}

// NewService creates a watchlist service
func NewService(repo contracts.WatchlistRepository, defaultExchange string, loc *time.Location, log *logger.Logger) *Service {
	return &Service{
		repo:            repo,
		defaultExchange: defaultExchange,
		location:        loc,
		logger:          log.WithComponent("watchlist"),
	}
}

// List returns items in insertion order
func (s *Service) List(ctx context.Context) ([]contracts.WatchlistItem, error) {
	return s.repo.List(ctx)
}

// Get returns one item
func (s *Service) Get(ctx context.Context, symbol string) (*contracts.WatchlistItem, error) {
	return s.repo.Get(ctx, symbol)
}

// Add validates and creates an item
func (s *Service) Add(ctx context.Context, item *contracts.WatchlistItem) error {
	item.Normalize(s.defaultExchange)
	if err := item.Validate(); err != nil {
		return botconfig.ValidationError{Field: "watchlist", Message: err.Error()}
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{"symbol": item.Symbol, "action": item.Action}).Info("Watchlist item added")
	return nil
}

// Update validates and replaces an item
func (s *Service) Update(ctx context.Context, item *contracts.WatchlistItem) error {
	item.Normalize(s.defaultExchange)
	if err := item.Validate(); err != nil {
		return botconfig.ValidationError{Field: "watchlist", Message: err.Error()}
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{"symbol": item.Symbol, "action": item.Action}).Info("Watchlist item updated")
	return nil
}

// Remove deletes an item
func (s *Service) Remove(ctx context.Context, symbol string) error {
	if err := s.repo.Delete(ctx, symbol); err != nil {
		return err
	}
	s.logger.WithField("symbol", symbol).Info("Watchlist item removed")
	return nil
}

// ImportResult counts the outcome of an import
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Import upserts every seed entry in file order. The whole file is validated
// before anything is written.
func (s *Service) Import(ctx context.Context, docs []botconfig.ItemDoc) (ImportResult, error) {
	var res ImportResult

	items := make([]*contracts.WatchlistItem, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		item, err := d.Item(s.location)
		if err != nil {
			return res, fmt.Errorf("entry %d: %w", i+1, err)
		}
		item.Normalize(s.defaultExchange)
		if err := item.Validate(); err != nil {
			return res, fmt.Errorf("entry %d (%s): %w", i+1, item.Symbol, err)
		}
		if seen[item.Symbol] {
			return res, fmt.Errorf("entry %d: duplicate symbol %s", i+1, item.Symbol)
		}
		seen[item.Symbol] = true
		items = append(items, item)
	}

	for _, item := range items {
		err := s.repo.Create(ctx, item)
		if errors.Is(err, contracts.ErrAlreadyExists) {
			if err := s.repo.Update(ctx, item); err != nil {
				return res, err
			}
			res.Updated++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Created++
	}

	s.logger.WithFields(map[string]interface{}{"created": res.Created, "updated": res.Updated}).Info("Watchlist imported")
	return res, nil
}

// Package memstore holds in-memory implementations of the repository
// contracts. They back unit tests and the `run --memory` dry-run mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Store implements every repository contract over maps guarded by one mutex
type Store struct {
	mu sync.Mutex

	config       contracts.BotConfig
	items        []contracts.WatchlistItem
	nextID       int64
	analysis     []contracts.AnalysisLog
	marketStates []contracts.MarketStateLog
	runs         map[string]contracts.RunLog
	runOrder     []string
	reservations []contracts.ReservedBalance
	orders       []contracts.ExecutedOrder

	// WatchlistReads counts List calls
	WatchlistReads int
}

// New returns an empty store seeded with the default config
func New() *Store {
	return &Store{
		config: contracts.DefaultBotConfig(),
		runs:   make(map[string]contracts.RunLog),
	}
}

// Config returns a ConfigRepository view
func (s *Store) Config() contracts.ConfigRepository { return configRepo{s} }

// Watchlist returns a WatchlistRepository view
func (s *Store) Watchlist() contracts.WatchlistRepository { return watchlistRepo{s} }

// Logs returns a LogRepository view
func (s *Store) Logs() contracts.LogRepository { return logRepo{s} }

// Reservations returns a ReservationRepository view
func (s *Store) Reservations() contracts.ReservationRepository { return reservationRepo{s} }

// Orders returns an OrderRepository view
func (s *Store) Orders() contracts.OrderRepository { return orderRepo{s} }

// AnalysisLogs returns all analysis logs in insertion order
func (s *Store) AnalysisLogs() []contracts.AnalysisLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.AnalysisLog(nil), s.analysis...)
}

// MarketStateLogs returns all market state logs in insertion order
func (s *Store) MarketStateLogs() []contracts.MarketStateLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.MarketStateLog(nil), s.marketStates...)
}

// ExecutedOrders returns all recorded orders in insertion order
func (s *Store) ExecutedOrders() []contracts.ExecutedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.ExecutedOrder(nil), s.orders...)
}

// =============================================================================
// Config
// =============================================================================

type configRepo struct{ s *Store }

func (r configRepo) Get(ctx context.Context) (*contracts.BotConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg := r.s.config
	return &cfg, nil
}

func (r configRepo) Save(ctx context.Context, cfg *contracts.BotConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.config = *cfg
	r.s.config.UpdatedAt = time.Now()
	return nil
}

// =============================================================================
// Watchlist
// =============================================================================

type watchlistRepo struct{ s *Store }

func (r watchlistRepo) index(symbol string) int {
	for i, it := range r.s.items {
		if strings.EqualFold(it.Symbol, symbol) {
			return i
		}
	}
	return -1
}

func (r watchlistRepo) List(ctx context.Context) ([]contracts.WatchlistItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.WatchlistReads++
	return append([]contracts.WatchlistItem(nil), r.s.items...), nil
}

func (r watchlistRepo) Get(ctx context.Context, symbol string) (*contracts.WatchlistItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(symbol)
	if i < 0 {
		return nil, fmt.Errorf("watchlist %s: %w", symbol, contracts.ErrNotFound)
	}
	item := r.s.items[i]
	return &item, nil
}

func (r watchlistRepo) Create(ctx context.Context, item *contracts.WatchlistItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.index(item.Symbol) >= 0 {
		return fmt.Errorf("watchlist %s: %w", item.Symbol, contracts.ErrAlreadyExists)
	}
	r.s.nextID++
	item.ID = r.s.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	r.s.items = append(r.s.items, *item)
	return nil
}

func (r watchlistRepo) Update(ctx context.Context, item *contracts.WatchlistItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(item.Symbol)
	if i < 0 {
		return fmt.Errorf("watchlist %s: %w", item.Symbol, contracts.ErrNotFound)
	}
	item.ID = r.s.items[i].ID
	item.CreatedAt = r.s.items[i].CreatedAt
	item.UpdatedAt = time.Now()
	r.s.items[i] = *item
	return nil
}

func (r watchlistRepo) Delete(ctx context.Context, symbol string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(symbol)
	if i < 0 {
		return fmt.Errorf("watchlist %s: %w", symbol, contracts.ErrNotFound)
	}
	r.s.items = append(r.s.items[:i], r.s.items[i+1:]...)
	return nil
}

func (r watchlistRepo) SetNextActionDate(ctx context.Context, symbol string, next time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(symbol)
	if i < 0 {
		return fmt.Errorf("watchlist %s: %w", symbol, contracts.ErrNotFound)
	}
	n := next
	r.s.items[i].NextActionDate = &n
	return nil
}

func (r watchlistRepo) SetPosition(ctx context.Context, symbol string, quantity int64, avgPrice decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(symbol)
	if i < 0 {
		return fmt.Errorf("watchlist %s: %w", symbol, contracts.ErrNotFound)
	}
	r.s.items[i].Quantity = quantity
	r.s.items[i].AvgPrice = avgPrice
	return nil
}

// =============================================================================
// Logs
// =============================================================================

type logRepo struct{ s *Store }

func (r logRepo) InsertAnalysisLog(ctx context.Context, log *contracts.AnalysisLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.analysis = append(r.s.analysis, *log)
	return nil
}

func (r logRepo) InsertMarketStateLog(ctx context.Context, log *contracts.MarketStateLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.marketStates = append(r.s.marketStates, *log)
	return nil
}

func (r logRepo) SaveRun(ctx context.Context, run *contracts.RunLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := run.RunID.String()
	if _, ok := r.s.runs[key]; !ok {
		r.s.runOrder = append(r.s.runOrder, key)
	}
	r.s.runs[key] = *run
	return nil
}

func (r logRepo) ListAnalysisLogs(ctx context.Context, limit int) ([]contracts.AnalysisLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.analysis, limit), nil
}

func (r logRepo) ListMarketStateLogs(ctx context.Context, limit int) ([]contracts.MarketStateLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.marketStates, limit), nil
}

func (r logRepo) ListRuns(ctx context.Context, limit int) ([]contracts.RunLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	runs := make([]contracts.RunLog, 0, len(r.s.runOrder))
	for _, k := range r.s.runOrder {
		runs = append(runs, r.s.runs[k])
	}
	return newestFirst(runs, limit), nil
}

func newestFirst[T any](in []T, limit int) []T {
	out := make([]T, 0, len(in))
	for i := len(in) - 1; i >= 0; i-- {
		out = append(out, in[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// =============================================================================
// Reservations
// =============================================================================

type reservationRepo struct{ s *Store }

func (r reservationRepo) ListActive(ctx context.Context) ([]contracts.ReservedBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []contracts.ReservedBalance
	for _, rb := range r.s.reservations {
		if rb.Active() {
			out = append(out, rb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r reservationRepo) GetActive(ctx context.Context, symbol string) (*contracts.ReservedBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rb := range r.s.reservations {
		if rb.Active() && strings.EqualFold(rb.Symbol, symbol) {
			cp := rb
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("reservation %s: %w", symbol, contracts.ErrNotFound)
}

func (r reservationRepo) Create(ctx context.Context, rb *contracts.ReservedBalance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.reservations {
		if existing.Active() && strings.EqualFold(existing.Symbol, rb.Symbol) {
			return fmt.Errorf("reservation %s: %w", rb.Symbol, contracts.ErrAlreadyExists)
		}
	}
	rb.ID = int64(len(r.s.reservations) + 1)
	r.s.reservations = append(r.s.reservations, *rb)
	return nil
}

func (r reservationRepo) Release(ctx context.Context, symbol string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rb := range r.s.reservations {
		if rb.Active() && strings.EqualFold(rb.Symbol, symbol) {
			t := at
			r.s.reservations[i].ReleasedAt = &t
			return nil
		}
	}
	return fmt.Errorf("reservation %s: %w", symbol, contracts.ErrNotFound)
}

// =============================================================================
// Orders
// =============================================================================

type orderRepo struct{ s *Store }

func (r orderRepo) Record(ctx context.Context, order *contracts.ExecutedOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders = append(r.s.orders, *order)
	return nil
}

func (r orderRepo) ListRecent(ctx context.Context, limit int) ([]contracts.ExecutedOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.orders, limit), nil
}

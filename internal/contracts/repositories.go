package contracts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ConfigRepository persists the single BotConfig row
type ConfigRepository interface {
	Get(ctx context.Context) (*BotConfig, error)
	Save(ctx context.Context, cfg *BotConfig) error
}

// WatchlistRepository manages watchlist items in insertion order
type WatchlistRepository interface {
	List(ctx context.Context) ([]WatchlistItem, error)
	Get(ctx context.Context, symbol string) (*WatchlistItem, error)
	Create(ctx context.Context, item *WatchlistItem) error
	Update(ctx context.Context, item *WatchlistItem) error
	Delete(ctx context.Context, symbol string) error

	// Narrow mutations owned by the policy engine
	SetNextActionDate(ctx context.Context, symbol string, next time.Time) error
	SetPosition(ctx context.Context, symbol string, quantity int64, avgPrice decimal.Decimal) error
}

// LogRepository stores the append-only audit trail
type LogRepository interface {
	InsertAnalysisLog(ctx context.Context, log *AnalysisLog) error
	InsertMarketStateLog(ctx context.Context, log *MarketStateLog) error
	SaveRun(ctx context.Context, run *RunLog) error

	// Listings are newest-first
	ListAnalysisLogs(ctx context.Context, limit int) ([]AnalysisLog, error)
	ListMarketStateLogs(ctx context.Context, limit int) ([]MarketStateLog, error)
	ListRuns(ctx context.Context, limit int) ([]RunLog, error)
}

// ReservationRepository stores EXIT_AND_REENTER reservations
type ReservationRepository interface {
	ListActive(ctx context.Context) ([]ReservedBalance, error)
	GetActive(ctx context.Context, symbol string) (*ReservedBalance, error)
	Create(ctx context.Context, r *ReservedBalance) error
	Release(ctx context.Context, symbol string, at time.Time) error
}

// OrderRepository stores executed orders
type OrderRepository interface {
	Record(ctx context.Context, order *ExecutedOrder) error
	ListRecent(ctx context.Context, limit int) ([]ExecutedOrder, error)
}

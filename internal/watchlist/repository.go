package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Repository handles watchlist persistence
// ⭐ SSOT: 감시 종목 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new watchlist repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `
	id, symbol, exchange, instrument_token, action, sip_amount, sip_frequency_days,
	next_action_date, quantity, avg_price, proxy_index, instrument_type, notes, created_at, updated_at
`

func scanItem(row pgx.Row) (*contracts.WatchlistItem, error) {
	var it contracts.WatchlistItem
	var action string
	err := row.Scan(
		&it.ID, &it.Symbol, &it.Exchange, &it.InstrumentToken, &action, &it.SIPAmount, &it.SIPFrequencyDays,
		&it.NextActionDate, &it.Quantity, &it.AvgPrice, &it.ProxyIndex, &it.InstrumentType, &it.Notes,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.Action = contracts.Action(action)
	return &it, nil
}

// List returns items in insertion order
func (r *Repository) List(ctx context.Context) ([]contracts.WatchlistItem, error) {
	query := `SELECT ` + itemColumns + ` FROM watchlist_items ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	items := make([]contracts.WatchlistItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlist: %w", err)
	}
	return items, nil
}

// Get returns one item by symbol
func (r *Repository) Get(ctx context.Context, symbol string) (*contracts.WatchlistItem, error) {
	query := `SELECT ` + itemColumns + ` FROM watchlist_items WHERE symbol = $1`

	it, err := scanItem(r.pool.QueryRow(ctx, query, strings.ToUpper(symbol)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("watchlist %s: %w", symbol, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist item: %w", err)
	}
	return it, nil
}

// Create inserts an item; symbols are unique
func (r *Repository) Create(ctx context.Context, it *contracts.WatchlistItem) error {
	query := `
		INSERT INTO watchlist_items (
			symbol, exchange, instrument_token, action, sip_amount, sip_frequency_days,
			next_action_date, quantity, avg_price, proxy_index, instrument_type, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		it.Symbol, it.Exchange, it.InstrumentToken, string(it.Action), it.SIPAmount, it.SIPFrequencyDays,
		it.NextActionDate, it.Quantity, it.AvgPrice, it.ProxyIndex, it.InstrumentType, it.Notes,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("watchlist %s: %w", it.Symbol, contracts.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create watchlist item: %w", err)
	}
	return nil
}

// Update replaces the editable fields of an existing item
func (r *Repository) Update(ctx context.Context, it *contracts.WatchlistItem) error {
	query := `
		UPDATE watchlist_items SET
			exchange = $2, instrument_token = $3, action = $4, sip_amount = $5, sip_frequency_days = $6,
			next_action_date = $7, quantity = $8, avg_price = $9, proxy_index = $10,
			instrument_type = $11, notes = $12, updated_at = now()
		WHERE symbol = $1
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		it.Symbol, it.Exchange, it.InstrumentToken, string(it.Action), it.SIPAmount, it.SIPFrequencyDays,
		it.NextActionDate, it.Quantity, it.AvgPrice, it.ProxyIndex, it.InstrumentType, it.Notes,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("watchlist %s: %w", it.Symbol, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update watchlist item: %w", err)
	}
	return nil
}

// Delete removes an item
func (r *Repository) Delete(ctx context.Context, symbol string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM watchlist_items WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watchlist %s: %w", symbol, contracts.ErrNotFound)
	}
	return nil
}

// SetNextActionDate stores the advanced SIP due date
func (r *Repository) SetNextActionDate(ctx context.Context, symbol string, next time.Time) error {
	query := `UPDATE watchlist_items SET next_action_date = $2, updated_at = now() WHERE symbol = $1`
	return r.exec(ctx, "set next action date", query, symbol, next)
}

// SetPosition stores the post-fill holding
func (r *Repository) SetPosition(ctx context.Context, symbol string, quantity int64, avgPrice decimal.Decimal) error {
	query := `UPDATE watchlist_items SET quantity = $2, avg_price = $3, updated_at = now() WHERE symbol = $1`
	return r.exec(ctx, "set position", query, symbol, quantity, avgPrice)
}

func (r *Repository) exec(ctx context.Context, op, query, symbol string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, append([]interface{}{strings.ToUpper(symbol)}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watchlist %s: %w", symbol, contracts.ErrNotFound)
	}
	return nil
}

var _ contracts.WatchlistRepository = (*Repository)(nil)

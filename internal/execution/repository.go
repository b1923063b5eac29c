package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Repository handles execution data persistence
// ⭐ SSOT: 주문/예약잔고 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new execution repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Orders returns the executed order view
func (r *Repository) Orders() contracts.OrderRepository { return orderRepo{r} }

// Reservations returns the reserved balance view
func (r *Repository) Reservations() contracts.ReservationRepository { return reservationRepo{r} }

// ============================================================================
// Executed orders
// ============================================================================

type orderRepo struct{ *Repository }

// Record saves an executed order
func (r orderRepo) Record(ctx context.Context, o *contracts.ExecutedOrder) error {
	query := `
		INSERT INTO executed_orders (order_id, run_id, symbol, side, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		o.OrderID, o.RunID, o.Symbol, string(o.Side), o.Quantity, o.Price, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}
	return nil
}

// ListRecent returns the newest orders first
func (r orderRepo) ListRecent(ctx context.Context, limit int) ([]contracts.ExecutedOrder, error) {
	query := `
		SELECT order_id, run_id, symbol, side, quantity, price, created_at
		FROM executed_orders
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]contracts.ExecutedOrder, 0)
	for rows.Next() {
		var o contracts.ExecutedOrder
		var side string
		if err := rows.Scan(&o.OrderID, &o.RunID, &o.Symbol, &side, &o.Quantity, &o.Price, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Side = contracts.OrderSide(side)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

// ============================================================================
// Reserved balances
// ============================================================================

type reservationRepo struct{ *Repository }

const reservationColumns = `
	id, symbol, reserved_amount, quantity, exit_price, cost_basis, exit_charges,
	target_reentry_condition, order_id, created_at, released_at
`

func scanReservation(row pgx.Row) (*contracts.ReservedBalance, error) {
	var rb contracts.ReservedBalance
	err := row.Scan(
		&rb.ID, &rb.Symbol, &rb.ReservedAmount, &rb.Quantity, &rb.ExitPrice, &rb.CostBasis, &rb.ExitCharges,
		&rb.TargetReentryCondition, &rb.OrderID, &rb.CreatedAt, &rb.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rb, nil
}

// ListActive returns unreleased reservations
func (r reservationRepo) ListActive(ctx context.Context) ([]contracts.ReservedBalance, error) {
	query := `SELECT ` + reservationColumns + ` FROM reserved_balances WHERE released_at IS NULL ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.ReservedBalance, 0)
	for rows.Next() {
		rb, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, *rb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}
	return out, nil
}

// GetActive returns the unreleased reservation for symbol
func (r reservationRepo) GetActive(ctx context.Context, symbol string) (*contracts.ReservedBalance, error) {
	query := `SELECT ` + reservationColumns + ` FROM reserved_balances WHERE symbol = $1 AND released_at IS NULL`

	rb, err := scanReservation(r.pool.QueryRow(ctx, query, strings.ToUpper(symbol)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reservation %s: %w", symbol, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return rb, nil
}

// Create inserts a reservation; at most one may be active per symbol
func (r reservationRepo) Create(ctx context.Context, rb *contracts.ReservedBalance) error {
	query := `
		INSERT INTO reserved_balances (
			symbol, reserved_amount, quantity, exit_price, cost_basis, exit_charges,
			target_reentry_condition, order_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		strings.ToUpper(rb.Symbol), rb.ReservedAmount, rb.Quantity, rb.ExitPrice, rb.CostBasis, rb.ExitCharges,
		rb.TargetReentryCondition, rb.OrderID, rb.CreatedAt,
	).Scan(&rb.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("reservation %s: %w", rb.Symbol, contracts.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

// Release marks the active reservation for symbol as released
func (r reservationRepo) Release(ctx context.Context, symbol string, at time.Time) error {
	query := `UPDATE reserved_balances SET released_at = $2 WHERE symbol = $1 AND released_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, strings.ToUpper(symbol), at)
	if err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s: %w", symbol, contracts.ErrNotFound)
	}
	return nil
}

// isUniqueViolation matches postgres error 23505
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

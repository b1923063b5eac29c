package botconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Repository persists the singleton bot_config row
// ⭐ SSOT: 봇 설정 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new config repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads the current configuration
func (r *Repository) Get(ctx context.Context) (*contracts.BotConfig, error) {
	query := `
		SELECT is_active, auto_execute_trades, schedule_type, interval_minutes, interval_hours,
		       daily_time, analysis_parameters, profit_threshold_percent,
		       minimum_gain_threshold_percent, enable_tax_harvesting, tax_harvesting_loss_slab, updated_at
		FROM bot_config
		WHERE id = 1
	`

	var cfg contracts.BotConfig
	var schedule string
	err := r.pool.QueryRow(ctx, query).Scan(
		&cfg.IsActive, &cfg.AutoExecuteTrades, &schedule, &cfg.IntervalMinutes, &cfg.IntervalHours,
		&cfg.DailyTime, &cfg.AnalysisParameters, &cfg.ProfitThresholdPercent,
		&cfg.MinimumGainThresholdPercent, &cfg.EnableTaxHarvesting, &cfg.TaxHarvestingLossSlab, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		def := contracts.DefaultBotConfig()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot config: %w", err)
	}
	cfg.ScheduleType = contracts.ScheduleType(schedule)
	return &cfg, nil
}

// Save replaces the whole document in one statement
func (r *Repository) Save(ctx context.Context, cfg *contracts.BotConfig) error {
	query := `
		INSERT INTO bot_config (
			id, is_active, auto_execute_trades, schedule_type, interval_minutes, interval_hours,
			daily_time, analysis_parameters, profit_threshold_percent,
			minimum_gain_threshold_percent, enable_tax_harvesting, tax_harvesting_loss_slab, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			auto_execute_trades = EXCLUDED.auto_execute_trades,
			schedule_type = EXCLUDED.schedule_type,
			interval_minutes = EXCLUDED.interval_minutes,
			interval_hours = EXCLUDED.interval_hours,
			daily_time = EXCLUDED.daily_time,
			analysis_parameters = EXCLUDED.analysis_parameters,
			profit_threshold_percent = EXCLUDED.profit_threshold_percent,
			minimum_gain_threshold_percent = EXCLUDED.minimum_gain_threshold_percent,
			enable_tax_harvesting = EXCLUDED.enable_tax_harvesting,
			tax_harvesting_loss_slab = EXCLUDED.tax_harvesting_loss_slab,
			updated_at = now()
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		cfg.IsActive, cfg.AutoExecuteTrades, string(cfg.ScheduleType), cfg.IntervalMinutes, cfg.IntervalHours,
		cfg.DailyTime, cfg.AnalysisParameters, cfg.ProfitThresholdPercent,
		cfg.MinimumGainThresholdPercent, cfg.EnableTaxHarvesting, cfg.TaxHarvestingLossSlab,
	).Scan(&cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save bot config: %w", err)
	}
	return nil
}

var _ contracts.ConfigRepository = (*Repository)(nil)

package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleType selects how the next automatic fire time is computed
type ScheduleType string

const (
	ScheduleInterval ScheduleType = "interval" // every N minutes
	ScheduleHourly   ScheduleType = "hourly"   // every N hours
	ScheduleDaily    ScheduleType = "daily"    // HH:MM market time
)

// BotConfig is the single global bot configuration record
// ⭐ SSOT: 봇 전역 설정
type BotConfig struct {
	IsActive          bool `json:"is_active"`
	AutoExecuteTrades bool `json:"auto_execute_trades"`

	ScheduleType    ScheduleType `json:"schedule_type"`
	IntervalMinutes int          `json:"interval_minutes"`
	IntervalHours   int          `json:"interval_hours"`
	DailyTime       string       `json:"daily_time"`

	AnalysisParameters string `json:"analysis_parameters"`

	ProfitThresholdPercent      decimal.Decimal `json:"profit_threshold_percent"`
	MinimumGainThresholdPercent decimal.Decimal `json:"minimum_gain_threshold_percent"`
	EnableTaxHarvesting         bool            `json:"enable_tax_harvesting"`
	TaxHarvestingLossSlab       decimal.Decimal `json:"tax_harvesting_loss_slab"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultBotConfig mirrors the seeded database row
func DefaultBotConfig() BotConfig {
	return BotConfig{
		ScheduleType:                ScheduleDaily,
		DailyTime:                   "09:30",
		ProfitThresholdPercent:      decimal.NewFromInt(5),
		MinimumGainThresholdPercent: decimal.NewFromInt(2),
	}
}

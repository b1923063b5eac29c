package botconfig

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// ValidationError 검증 실패 (저장 거부)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Validate checks the whole document before it is applied
func Validate(cfg *contracts.BotConfig) error {
	// === Schedule ===
	switch cfg.ScheduleType {
	case contracts.ScheduleInterval:
		if cfg.IntervalMinutes <= 0 {
			return ValidationError{"interval_minutes", "must be > 0 for interval schedule"}
		}
	case contracts.ScheduleHourly:
		if cfg.IntervalHours <= 0 {
			return ValidationError{"interval_hours", "must be > 0 for hourly schedule"}
		}
	case contracts.ScheduleDaily:
		if err := validateHHMM(cfg.DailyTime); err != nil {
			return ValidationError{"daily_time", err.Error()}
		}
	default:
		return ValidationError{"schedule_type", fmt.Sprintf("unknown schedule type %q", cfg.ScheduleType)}
	}

	// === Thresholds ===
	if cfg.ProfitThresholdPercent.IsNegative() {
		return ValidationError{"profit_threshold_percent", "must be >= 0"}
	}
	if cfg.MinimumGainThresholdPercent.IsNegative() {
		return ValidationError{"minimum_gain_threshold_percent", "must be >= 0"}
	}
	if cfg.TaxHarvestingLossSlab.IsNegative() {
		return ValidationError{"tax_harvesting_loss_slab", "must be >= 0"}
	}
	if cfg.EnableTaxHarvesting && cfg.TaxHarvestingLossSlab.Equal(decimal.Zero) {
		return ValidationError{"tax_harvesting_loss_slab", "required when tax harvesting is enabled"}
	}

	if len(cfg.AnalysisParameters) > 4000 {
		return ValidationError{"analysis_parameters", "must be at most 4000 characters"}
	}
	return nil
}

func validateHHMM(s string) error {
	if !hhmm.MatchString(s) {
		return errors.New("must be HH:MM format")
	}
	_, err := time.Parse("15:04", s)
	return err
}

// ParseDailyTime splits a validated HH:MM value
func ParseDailyTime(s string) (hour, minute int, err error) {
	if err := validateHHMM(s); err != nil {
		return 0, 0, err
	}
	t, _ := time.Parse("15:04", s)
	return t.Hour(), t.Minute(), nil
}

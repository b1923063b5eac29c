package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// IntervalSchedule fires every Every after the previous fire
type IntervalSchedule struct {
	Every time.Duration
}

// Next implements cron.Schedule
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Every)
}

// DailySchedule fires once a day at a wall-clock time in Location
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Next implements cron.Schedule. A time equal to t rolls to the next day.
func (s DailySchedule) Next(t time.Time) time.Time {
	local := t.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, s.Location)
	}
	return next
}

// FromConfig translates the configured mode into a cron.Schedule
func FromConfig(cfg contracts.BotConfig, loc *time.Location) (cron.Schedule, string, error) {
	switch cfg.ScheduleType {
	case contracts.ScheduleInterval:
		if cfg.IntervalMinutes <= 0 {
			return nil, "", fmt.Errorf("interval_minutes must be > 0")
		}
		return IntervalSchedule{Every: time.Duration(cfg.IntervalMinutes) * time.Minute},
			fmt.Sprintf("every %d minutes", cfg.IntervalMinutes), nil

	case contracts.ScheduleHourly:
		if cfg.IntervalHours <= 0 {
			return nil, "", fmt.Errorf("interval_hours must be > 0")
		}
		return IntervalSchedule{Every: time.Duration(cfg.IntervalHours) * time.Hour},
			fmt.Sprintf("every %d hours", cfg.IntervalHours), nil

	case contracts.ScheduleDaily:
		h, m, err := botconfig.ParseDailyTime(cfg.DailyTime)
		if err != nil {
			return nil, "", fmt.Errorf("daily_time: %w", err)
		}
		return DailySchedule{Hour: h, Minute: m, Location: loc},
			fmt.Sprintf("daily at %s %s", cfg.DailyTime, loc.String()), nil
	}
	return nil, "", fmt.Errorf("unknown schedule type %q", cfg.ScheduleType)
}

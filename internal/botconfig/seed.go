package botconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Seed is an operator-maintained YAML file holding the bot config and/or the
// watchlist, used by `watchlist import` and `config import`.
type Seed struct {
	Config    *ConfigDoc `yaml:"config"`
	Watchlist []ItemDoc  `yaml:"watchlist"`
}

// ConfigDoc is the YAML form of BotConfig
type ConfigDoc struct {
	IsActive                    bool    `yaml:"is_active"`
	AutoExecuteTrades           bool    `yaml:"auto_execute_trades"`
	ScheduleType                string  `yaml:"schedule_type"`
	IntervalMinutes             int     `yaml:"interval_minutes"`
	IntervalHours               int     `yaml:"interval_hours"`
	DailyTime                   string  `yaml:"daily_time"`
	AnalysisParameters          string  `yaml:"analysis_parameters"`
	ProfitThresholdPercent      float64 `yaml:"profit_threshold_percent"`
	MinimumGainThresholdPercent float64 `yaml:"minimum_gain_threshold_percent"`
	EnableTaxHarvesting         bool    `yaml:"enable_tax_harvesting"`
	TaxHarvestingLossSlab       float64 `yaml:"tax_harvesting_loss_slab"`
}

// ItemDoc is the YAML form of a WatchlistItem
type ItemDoc struct {
	Symbol           string  `yaml:"symbol"`
	Exchange         string  `yaml:"exchange"`
	InstrumentToken  string  `yaml:"token"`
	Action           string  `yaml:"action"`
	SIPAmount        float64 `yaml:"sip_amount"`
	SIPFrequencyDays int     `yaml:"sip_frequency_days"`
	NextActionDate   string  `yaml:"next_action_date"` // YYYY-MM-DD, market timezone
	Quantity         int64   `yaml:"quantity"`
	AvgPrice         float64 `yaml:"avg_price"`
	ProxyIndex       string  `yaml:"proxy_index"`
	InstrumentType   string  `yaml:"instrument_type"`
	Notes            string  `yaml:"notes"`
}

// LoadSeed reads a seed file and returns it with the raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func LoadSeed(path string) (*Seed, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	seed, err := ParseSeed(data)
	return seed, data, err
}

// ParseSeed decodes seed YAML strictly
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &seed, nil
}

// BotConfig converts and validates the config section
func (d *ConfigDoc) BotConfig() (*contracts.BotConfig, error) {
	cfg := &contracts.BotConfig{
		IsActive:                    d.IsActive,
		AutoExecuteTrades:           d.AutoExecuteTrades,
		ScheduleType:                contracts.ScheduleType(d.ScheduleType),
		IntervalMinutes:             d.IntervalMinutes,
		IntervalHours:               d.IntervalHours,
		DailyTime:                   d.DailyTime,
		AnalysisParameters:          d.AnalysisParameters,
		ProfitThresholdPercent:      decimal.NewFromFloat(d.ProfitThresholdPercent),
		MinimumGainThresholdPercent: decimal.NewFromFloat(d.MinimumGainThresholdPercent),
		EnableTaxHarvesting:         d.EnableTaxHarvesting,
		TaxHarvestingLossSlab:       decimal.NewFromFloat(d.TaxHarvestingLossSlab),
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Item converts one watchlist entry. Dates are read in loc.
func (d ItemDoc) Item(loc *time.Location) (*contracts.WatchlistItem, error) {
	action, err := contracts.ParseAction(d.Action)
	if err != nil {
		return nil, ValidationError{"watchlist." + d.Symbol + ".action", err.Error()}
	}

	item := &contracts.WatchlistItem{
		Symbol:           d.Symbol,
		Exchange:         d.Exchange,
		InstrumentToken:  d.InstrumentToken,
		Action:           action,
		SIPAmount:        decimal.NewFromFloat(d.SIPAmount),
		SIPFrequencyDays: d.SIPFrequencyDays,
		Quantity:         d.Quantity,
		AvgPrice:         decimal.NewFromFloat(d.AvgPrice),
		ProxyIndex:       d.ProxyIndex,
		InstrumentType:   d.InstrumentType,
		Notes:            d.Notes,
	}
	if d.NextActionDate != "" {
		t, err := time.ParseInLocation("2006-01-02", d.NextActionDate, loc)
		if err != nil {
			return nil, ValidationError{"watchlist." + d.Symbol + ".next_action_date", "must be YYYY-MM-DD"}
		}
		item.NextActionDate = &t
	}
	return item, nil
}

// Hash generates a SHA256 of the canonical JSON form of cfg
// 주의: struct 사용으로 해시 재현성 보장
func Hash(cfg *contracts.BotConfig) (string, error) {
	c := *cfg
	c.UpdatedAt = time.Time{}
	jsonBytes, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

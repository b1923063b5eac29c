package policy

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/config"
)

// Schedule is the simulated delivery-equity charge schedule
type Schedule struct {
	BrokerageFlat   decimal.Decimal
	BrokerageRate   decimal.Decimal
	STTRate         decimal.Decimal
	ExchangeTxnRate decimal.Decimal
	SEBIRate        decimal.Decimal
	StampDutyRate   decimal.Decimal
	GSTRate         decimal.Decimal
	DPChargePerSell decimal.Decimal
}

// ScheduleFromConfig converts the float config group into decimals
func ScheduleFromConfig(c config.ChargesConfig) Schedule {
	return Schedule{
		BrokerageFlat:   decimal.NewFromFloat(c.BrokerageFlat),
		BrokerageRate:   decimal.NewFromFloat(c.BrokerageRate),
		STTRate:         decimal.NewFromFloat(c.STTRate),
		ExchangeTxnRate: decimal.NewFromFloat(c.ExchangeTxnRate),
		SEBIRate:        decimal.NewFromFloat(c.SEBIRate),
		StampDutyRate:   decimal.NewFromFloat(c.StampDutyRate),
		GSTRate:         decimal.NewFromFloat(c.GSTRate),
		DPChargePerSell: decimal.NewFromFloat(c.DPChargePerSell),
	}
}

// Breakdown itemises the charges of one order. Each line is rounded to paise.
type Breakdown struct {
	Brokerage   decimal.Decimal `json:"brokerage"`
	STT         decimal.Decimal `json:"stt"`
	ExchangeTxn decimal.Decimal `json:"exchange_txn"`
	SEBI        decimal.Decimal `json:"sebi"`
	StampDuty   decimal.Decimal `json:"stamp_duty"`
	GST         decimal.Decimal `json:"gst"`
	DP          decimal.Decimal `json:"dp"`
	Total       decimal.Decimal `json:"total"`
}

// Compute returns the charges for an order of the given side and value
func (s Schedule) Compute(side contracts.OrderSide, value decimal.Decimal) Breakdown {
	if !value.IsPositive() {
		return Breakdown{}
	}

	b := Breakdown{
		Brokerage:   decimal.Min(s.BrokerageFlat, value.Mul(s.BrokerageRate)).Round(2),
		STT:         value.Mul(s.STTRate).Round(2),
		ExchangeTxn: value.Mul(s.ExchangeTxnRate).Round(2),
		SEBI:        value.Mul(s.SEBIRate).Round(2),
	}
	if side == contracts.OrderSideBuy {
		b.StampDuty = value.Mul(s.StampDutyRate).Round(2)
	} else {
		b.DP = s.DPChargePerSell.Round(2)
	}
	b.GST = b.Brokerage.Add(b.ExchangeTxn).Add(b.SEBI).Mul(s.GSTRate).Round(2)

	b.Total = b.Brokerage.Add(b.STT).Add(b.ExchangeTxn).Add(b.SEBI).
		Add(b.StampDuty).Add(b.GST).Add(b.DP)
	return b
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastRowDTO is the wire form of one forecast row, with the price rounded.
type ForecastRowDTO struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// ForecastDTO is the wire form of a forecast table, shared by the HTTP API and
// the forecast events topic.
type ForecastDTO struct {
	RunID        string           `json:"run_id"`
	Symbol       string           `json:"symbol"`
	Backend      string           `json:"backend"`
	GeneratedAt  time.Time        `json:"generated_at"`
	LastObserved string           `json:"last_observed"`
	Horizon      int              `json:"horizon"`
	Rows         []ForecastRowDTO `json:"rows"`
}

// NewForecastDTO converts t rounding prices to precision decimal places.
func NewForecastDTO(t *ForecastTable, precision int32) ForecastDTO {
	rows := make([]ForecastRowDTO, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = ForecastRowDTO{
			Date:  r.Date.Format(time.DateOnly),
			Value: decimal.NewFromFloat(r.Value).Round(precision),
		}
	}
	return ForecastDTO{
		RunID:        t.RunID,
		Symbol:       t.Symbol,
		Backend:      t.Backend,
		GeneratedAt:  t.GeneratedAt,
		LastObserved: t.LastObserved.Format(time.DateOnly),
		Horizon:      len(rows),
		Rows:         rows,
	}
}

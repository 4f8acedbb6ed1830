package forecast

import (
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// Assemble pairs values with the business days strictly after lastObserved, in
// generation order. Either every value gets a date or no table is returned.
func Assemble(symbol, backend string, lastObserved time.Time, values []float64, cal domsvc.Calendar) (*models.ForecastTable, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("assemble %s: no forecast values", symbol)
	}
	dates := cal.NextBusinessDays(lastObserved, len(values))
	if len(dates) != len(values) {
		return nil, fmt.Errorf("assemble %s: calendar returned %d dates for %d values", symbol, len(dates), len(values))
	}

	rows := make([]models.ForecastRow, len(values))
	for i, v := range values {
		if i > 0 && !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("assemble %s: calendar dates not increasing at %d", symbol, i)
		}
		rows[i] = models.ForecastRow{Date: dates[i], Value: v}
	}
	if !rows[0].Date.After(lastObserved) {
		return nil, fmt.Errorf("assemble %s: first forecast date %s not after %s",
			symbol, rows[0].Date.Format(time.DateOnly), lastObserved.Format(time.DateOnly))
	}

	return &models.ForecastTable{
		Symbol:       symbol,
		Backend:      backend,
		GeneratedAt:  time.Now().UTC(),
		LastObserved: lastObserved,
		Rows:         rows,
	}, nil
}

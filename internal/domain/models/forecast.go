package models

import "time"

// ForecastRow pairs one future business day with its forecasted close.
type ForecastRow struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ForecastTable is the complete output of one symbol/backend run.
type ForecastTable struct {
	RunID        string        `json:"run_id"`
	Symbol       string        `json:"symbol"`
	Backend      string        `json:"backend"`
	GeneratedAt  time.Time     `json:"generated_at"`
	LastObserved time.Time     `json:"last_observed"`
	Rows         []ForecastRow `json:"rows"`
}

func (t *ForecastTable) Horizon() int { return len(t.Rows) }

// Values returns the forecasted closes in date order.
func (t *ForecastTable) Values() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Value
	}
	return out
}

// SymbolStatus is the outcome of one symbol inside a batch.
type SymbolStatus string

const (
	StatusSucceeded SymbolStatus = "succeeded"
	StatusSkipped   SymbolStatus = "skipped" // insufficient history
	StatusFailed    SymbolStatus = "failed"
)

type SymbolResult struct {
	Symbol    string
	Backend   string
	Status    SymbolStatus
	Fallbacks int
	Err       error
	Duration  time.Duration
}

// BatchReport summarizes a batch run. Results keep the input symbol order.
type BatchReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SymbolResult
}

func (r *BatchReport) Count(status SymbolStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

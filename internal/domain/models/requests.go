package models

// Requests for the forecast HTTP endpoints. Defined in domain for reuse by the
// handler and the queue job.

type ForecastQuery struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required,max=32"`
	Backend string `query:"backend" json:"backend" default:"lagreg" validate:"oneof=lagreg expsmooth"`
}

type RunRequest struct {
	Symbol  string `json:"symbol" validate:"required,max=32"`
	Backend string `json:"backend" default:"lagreg" validate:"oneof=lagreg expsmooth"`
	Async   bool   `json:"async"`
}

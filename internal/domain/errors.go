package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means the series cannot yield a single training row.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrPredictorFailure wraps any fit/predict failure of a one-step model.
	ErrPredictorFailure = errors.New("predictor failure")
	// ErrMalformedLagConfiguration tags the degrade-to-last-value path taken when
	// the historical tail is shorter than the largest lag. It is logged, never returned
	// by the driver.
	ErrMalformedLagConfiguration = errors.New("malformed lag configuration")
	ErrInvalidSeries             = errors.New("invalid series")
	ErrInvalidLagSet             = errors.New("invalid lag set")
	ErrUnknownBackend            = errors.New("unknown backend")
	ErrSeriesNotFound            = errors.New("series not found")
	ErrForecastNotFound          = errors.New("forecast not found")
	ErrRunInProgress             = errors.New("forecast run already in progress")
	ErrInvalidRequest            = errors.New("invalid request")
)

// SymbolError attaches symbol and backend to a per-symbol failure.
type SymbolError struct {
	Symbol  string
	Backend string
	Err     error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Symbol, e.Backend, e.Err)
}

func (e *SymbolError) Unwrap() error { return e.Err }

// Retryable reports whether err may succeed on a later attempt. Input and model
// defects are terminal.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInsufficientHistory),
		errors.Is(err, ErrPredictorFailure),
		errors.Is(err, ErrInvalidSeries),
		errors.Is(err, ErrInvalidLagSet),
		errors.Is(err, ErrUnknownBackend),
		errors.Is(err, ErrSeriesNotFound),
		errors.Is(err, ErrInvalidRequest):
		return false
	default:
		return true
	}
}

package forecast

import (
	"context"
	"fmt"
	"slices"

	"FinCast/internal/domain"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/logger"
)

// LagSource names where a lag slot of a feature vector was read from.
type LagSource int

const (
	// SourceGenerated is a value from the forecast buffer.
	SourceGenerated LagSource = iota
	// SourceBoundary is the last real observation, used when the lag lands exactly
	// on the edge between history and generated values.
	SourceBoundary
	// SourceHistory is a value from the historical tail.
	SourceHistory
	// SourceFallback is the last real observation substituted for a tail lookup
	// that fell before the start of the tail.
	SourceFallback
)

func (s LagSource) String() string {
	switch s {
	case SourceGenerated:
		return "generated"
	case SourceBoundary:
		return "boundary"
	case SourceHistory:
		return "history"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ResolveLag returns the value lag steps before the step that follows the last
// buffered prediction. today is the last real observation.
func ResolveLag(lag int, buffer, tail []float64, today float64) (float64, LagSource) {
	n := len(buffer)
	switch {
	case n > lag:
		return buffer[n-1-lag], SourceGenerated
	case n == lag:
		return today, SourceBoundary
	}
	idx := len(tail) - (lag - n) - 1
	if idx < 0 || idx >= len(tail) {
		return today, SourceFallback
	}
	return tail[idx], SourceHistory
}

// Trace is the outcome of one recursive run.
type Trace struct {
	Values    []float64
	Fallbacks int
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(log *logger.Logger) DriverOption {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// WithStepObserver registers fn to receive every feature vector before it is
// passed to the model. fn gets a copy.
func WithStepObserver(fn func(step int, features []float64)) DriverOption {
	return func(d *Driver) { d.onStep = fn }
}

// WithFallbackObserver registers fn to be called whenever a lag degrades to the
// last real observation.
func WithFallbackObserver(fn func(step, lag int)) DriverOption {
	return func(d *Driver) { d.onFallback = fn }
}

// Driver turns a one-step model into a multi-step forecast by feeding each
// prediction back as the next step's current value.
type Driver struct {
	model   domsvc.OneStepModel
	lags    features.LagSet
	horizon int
	tail    []float64
	today   float64

	log        *logger.Logger
	onStep     func(step int, features []float64)
	onFallback func(step, lag int)
}

// NewDriver builds a driver. tail and model are only read.
func NewDriver(model domsvc.OneStepModel, lags features.LagSet, horizon int, tail []float64, today float64, opts ...DriverOption) (*Driver, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", domain.ErrPredictorFailure)
	}
	if len(lags) == 0 {
		return nil, fmt.Errorf("%w: empty", domain.ErrInvalidLagSet)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	d := &Driver{
		model:   model,
		lags:    lags,
		horizon: horizon,
		tail:    tail,
		today:   today,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run executes exactly horizon transitions starting from initial, the feature
// vector of the last real observation. Any model error aborts the run and no
// values are returned.
func (d *Driver) Run(ctx context.Context, initial []float64) (*Trace, error) {
	if len(initial) != d.lags.Width() {
		return nil, fmt.Errorf("%w: initial features have %d values, want %d",
			domain.ErrPredictorFailure, len(initial), d.lags.Width())
	}

	buffer := make([]float64, 0, d.horizon)
	current := slices.Clone(initial)
	trace := &Trace{}

	for step := 0; step < d.horizon; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.onStep != nil {
			d.onStep(step, slices.Clone(current))
		}

		prediction, err := d.model.Predict(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", domain.ErrPredictorFailure, step, err)
		}
		buffer = append(buffer, prediction)

		next := make([]float64, 0, d.lags.Width())
		next = append(next, prediction)
		for _, lag := range d.lags {
			v, src := ResolveLag(lag, buffer, d.tail, d.today)
			if src == SourceFallback {
				trace.Fallbacks++
				d.warnFallback(step, lag)
			}
			next = append(next, v)
		}
		current = next
	}

	trace.Values = buffer
	return trace, nil
}

func (d *Driver) warnFallback(step, lag int) {
	d.log.Warn("lag beyond historical tail, using last observed value",
		logger.Error(domain.ErrMalformedLagConfiguration),
		logger.Int("step", step),
		logger.Int("lag", lag),
		logger.Int("tail_size", len(d.tail)),
	)
	if d.onFallback != nil {
		d.onFallback(step, lag)
	}
}

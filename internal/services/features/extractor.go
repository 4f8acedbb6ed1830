package features

import (
    "fmt"
    "slices"

    "FinCast/internal/domain"
)

// LagSet is an ordered set of distinct positive lag offsets.
type LagSet []int

// NewLagSet validates offsets and keeps their configured order.
func NewLagSet(offsets ...int) (LagSet, error) {
    if len(offsets) == 0 {
        return nil, fmt.Errorf("%w: empty", domain.ErrInvalidLagSet)
    }
    seen := make(map[int]struct{}, len(offsets))
    for _, l := range offsets {
        if l <= 0 {
            return nil, fmt.Errorf("%w: offset %d must be positive", domain.ErrInvalidLagSet, l)
        }
        if _, dup := seen[l]; dup {
            return nil, fmt.Errorf("%w: duplicate offset %d", domain.ErrInvalidLagSet, l)
        }
        seen[l] = struct{}{}
    }
    return LagSet(slices.Clone(offsets)), nil
}

// Max returns the largest offset, i.e. how many leading observations never form a row.
func (s LagSet) Max() int {
    if len(s) == 0 {
        return 0
    }
    return slices.Max(s)
}

// Width is the feature vector length: the current value plus one slot per lag.
func (s LagSet) Width() int { return 1 + len(s) }

// FeatureVectorAt builds [v(t), v(t-l1), v(t-l2), ...] for index t.
func FeatureVectorAt(values []float64, t int, lags LagSet) ([]float64, error) {
    if t < 0 || t >= len(values) {
        return nil, fmt.Errorf("%w: index %d outside series of length %d", domain.ErrInsufficientHistory, t, len(values))
    }
    if t-lags.Max() < 0 {
        return nil, fmt.Errorf("%w: index %d has no value at lag %d", domain.ErrInsufficientHistory, t, lags.Max())
    }
    out := make([]float64, 0, lags.Width())
    out = append(out, values[t])
    for _, l := range lags {
        out = append(out, values[t-l])
    }
    return out, nil
}

// BuildTrainingSet derives chronological (features, next value) pairs.
// Row t is eligible when every lag is defined and v(t+1) exists.
func BuildTrainingSet(values []float64, lags LagSet) ([][]float64, []float64, error) {
    first := lags.Max()
    last := len(values) - 2
    if len(lags) == 0 {
        return nil, nil, fmt.Errorf("%w: empty", domain.ErrInvalidLagSet)
    }
    if last < first {
        return nil, nil, fmt.Errorf("%w: %d observations, need more than %d", domain.ErrInsufficientHistory, len(values), first+1)
    }
    X := make([][]float64, 0, last-first+1)
    y := make([]float64, 0, last-first+1)
    for t := first; t <= last; t++ {
        row, err := FeatureVectorAt(values, t, lags)
        if err != nil {
            return nil, nil, err
        }
        X = append(X, row)
        y = append(y, values[t+1])
    }
    return X, y, nil
}

// HistoricalTail returns a copy of the last n values, or all of them when fewer exist.
func HistoricalTail(values []float64, n int) []float64 {
    if n <= 0 {
        return nil
    }
    if n > len(values) {
        n = len(values)
    }
    return slices.Clone(values[len(values)-n:])
}

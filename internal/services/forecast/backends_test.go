package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/pkg/util"
)

type stubTrainer struct {
	model domsvc.OneStepModel
	err   error
	rows  int
}

func (s *stubTrainer) Name() string { return "stub" }

func (s *stubTrainer) Fit(_ context.Context, X [][]float64, _ []float64) (domsvc.OneStepModel, error) {
	s.rows = len(X)
	return s.model, s.err
}

func seriesOf(values []float64) *models.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &models.Series{Symbol: "TEST"}
	for i, v := range values {
		s.Points = append(s.Points, models.Point{Date: start.AddDate(0, 0, i), Close: v})
	}
	return s
}

func TestLagRegressionForecast(t *testing.T) {
	trainer := &stubTrainer{model: &plusOne{}}
	b := NewLagRegression(trainer, defaultLags(t), 0, nil)

	out, err := b.Forecast(context.Background(), seriesOf(tens(15)), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{141, 142, 143}, out.Values)
	assert.Equal(t, 4, trainer.rows)
	assert.Equal(t, "lagreg", b.Name())
}

func TestLagRegressionErrors(t *testing.T) {
	lags := defaultLags(t)

	_, err := NewLagRegression(&stubTrainer{model: &plusOne{}}, lags, 0, nil).
		Forecast(context.Background(), seriesOf(tens(10)), 30)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)

	_, err = NewLagRegression(&stubTrainer{err: errors.New("singular")}, lags, 0, nil).
		Forecast(context.Background(), seriesOf(tens(30)), 30)
	assert.ErrorIs(t, err, domain.ErrPredictorFailure)

	_, err = NewLagRegression(&stubTrainer{model: &failAt{step: 0}}, lags, 0, nil).
		Forecast(context.Background(), seriesOf(tens(30)), 30)
	assert.ErrorIs(t, err, domain.ErrPredictorFailure)
}

func TestExpSmoothing(t *testing.T) {
	b := NewExpSmoothing(0.5)
	out, err := b.Forecast(context.Background(), seriesOf([]float64{10, 20}), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 15, 15}, out.Values)

	out, err = NewExpSmoothing(1).Forecast(context.Background(), seriesOf([]float64{10, 20, 31}), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{31, 31}, out.Values, "alpha 1 repeats the last close")

	// a trending series projects below its last close
	out, err = NewExpSmoothing(0.3).Forecast(context.Background(), seriesOf([]float64{10, 20, 30, 40}), 1)
	require.NoError(t, err)
	assert.Less(t, out.Values[0], 40.0)

	_, err = b.Forecast(context.Background(), seriesOf(nil), 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
	assert.Equal(t, 0.3, NewExpSmoothing(0).alpha)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry("expsmooth", NewExpSmoothing(0.3))

	assert.Equal(t, []string{"expsmooth"}, r.Names())
	_, err := r.Get("lagreg")
	assert.ErrorIs(t, err, domain.ErrUnknownBackend)

	f, err := r.Resolve("lagreg")
	require.NoError(t, err)
	assert.Equal(t, "expsmooth", f.Name())

	r.Register(NewLagRegression(&stubTrainer{model: &plusOne{}}, defaultLags(t), 0, nil))
	f, err = r.Resolve("lagreg")
	require.NoError(t, err)
	assert.Equal(t, "lagreg", f.Name())
	assert.Contains(t, r.Names(), "lagreg")
}

type shortCalendar struct{}

func (shortCalendar) NextBusinessDays(start time.Time, count int) []time.Time {
	return []time.Time{start.AddDate(0, 0, 1)}
}

func TestAssemble(t *testing.T) {
	friday := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)
	table, err := Assemble("AAPL", "lagreg", friday, []float64{1, 2, 3}, util.NewBusinessCalendar())
	require.NoError(t, err)

	require.Equal(t, 3, table.Horizon())
	assert.Equal(t, "2024-10-14", table.Rows[0].Date.Format(time.DateOnly))
	assert.Equal(t, "2024-10-16", table.Rows[2].Date.Format(time.DateOnly))
	assert.Equal(t, []float64{1, 2, 3}, table.Values())
	assert.Equal(t, friday, table.LastObserved)

	_, err = Assemble("AAPL", "lagreg", friday, []float64{1, 2, 3}, shortCalendar{})
	assert.Error(t, err)
	_, err = Assemble("AAPL", "lagreg", friday, nil, util.NewBusinessCalendar())
	assert.Error(t, err)
}

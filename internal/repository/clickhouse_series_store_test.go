package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
)

func newMockStore(t *testing.T) (*CHSeriesStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCHSeriesStoreFromDB(db, "fincast", "daily_prices", "forecasts", nil), mock
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestCHLoadForwardFillsNullCloses(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"date", "close"}).
		AddRow(day(1), nil). // nothing to carry forward yet
		AddRow(day(2), 100.0).
		AddRow(day(3), nil).
		AddRow(day(4), nil).
		AddRow(day(5), 103.0)
	mock.ExpectQuery(`SELECT date, close\s+FROM fincast\.daily_prices FINAL`).
		WithArgs("AAPL").
		WillReturnRows(rows)

	s, err := store.Load(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, []float64{100, 100, 100, 103}, s.Values())
	assert.Equal(t, day(2), s.Points[0].Date)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHLoadErrors(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM fincast\.daily_prices`).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"date", "close"}))
	_, err := store.Load(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrSeriesNotFound)
	assert.True(t, IsNotFound(err))

	mock.ExpectQuery(`FROM fincast\.daily_prices`).
		WithArgs("AAPL").
		WillReturnError(errors.New("connection reset"))
	_, err = store.Load(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.False(t, IsNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func threeRowTable() *models.ForecastTable {
	t := sampleTable()
	t.Rows = []models.ForecastRow{
		{Date: time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC), Value: 101.5},
		{Date: time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC), Value: 102.5},
		{Date: time.Date(2024, 10, 16, 0, 0, 0, 0, time.UTC), Value: 103.5},
	}
	return t
}

func TestCHSaveInsertsWholeTable(t *testing.T) {
	store, mock := newMockStore(t)
	table := threeRowTable()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO fincast\.forecasts \(run_id, symbol, backend, generated_at, last_observed, step, date, value\)`)
	for i, r := range table.Rows {
		prep.ExpectExec().
			WithArgs("run-1", "AAPL", "lagreg", table.GeneratedAt, table.LastObserved, i, r.Date, r.Value).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), table))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSaveRollsBackOnRowFailure(t *testing.T) {
	store, mock := newMockStore(t)
	table := threeRowTable()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO fincast\.forecasts`)
	prep.ExpectExec().WithArgs("run-1", "AAPL", "lagreg", sqlmock.AnyArg(), sqlmock.AnyArg(), 0, sqlmock.AnyArg(), 101.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("run-1", "AAPL", "lagreg", sqlmock.AnyArg(), sqlmock.AnyArg(), 1, sqlmock.AnyArg(), 102.5).
		WillReturnError(errors.New("too many parts"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append forecast row 1")
	require.NoError(t, mock.ExpectationsWereMet(), "third row must not be sent and the block must be rolled back")
}

func TestCHSaveReportsCommitFailure(t *testing.T) {
	store, mock := newMockStore(t)
	table := sampleTable()

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO fincast\.forecasts`).
		ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("block rejected"))

	err := store.Save(context.Background(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit forecast insert")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHLatestReadsNewestRun(t *testing.T) {
	store, mock := newMockStore(t)
	gen := time.Date(2024, 10, 11, 20, 0, 0, 0, time.UTC)
	last := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"run_id", "generated_at", "last_observed", "date", "value"}).
		AddRow("run-2", gen, last, time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC), 101.5).
		AddRow("run-2", gen, last, time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC), 102.5)
	mock.ExpectQuery(`SELECT run_id, generated_at, last_observed, date, value\s+FROM fincast\.forecasts`).
		WithArgs("AAPL", "lagreg", "AAPL", "lagreg").
		WillReturnRows(rows)

	got, err := store.Latest(context.Background(), "AAPL", "lagreg")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, gen, got.GeneratedAt)
	assert.Equal(t, last, got.LastObserved)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, 102.5, got.Rows[1].Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHLatestMissingRun(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM fincast\.forecasts`).
		WithArgs("AAPL", "expsmooth", "AAPL", "expsmooth").
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "generated_at", "last_observed", "date", "value"}))

	_, err := store.Latest(context.Background(), "AAPL", "expsmooth")
	assert.ErrorIs(t, err, domain.ErrForecastNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

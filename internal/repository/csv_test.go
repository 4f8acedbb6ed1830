package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestCSVSeriesLoaderNormalizes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAPL.csv", `published_date,open,close
2024-01-04,1,13
2024-01-02,1,11
2024-01-03,1,
2024-01-02,1,99
2024-01-05T00:00:00Z,1,15.5
`)

	s, err := NewCSVSeriesLoader(dir, nil).Load(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, []float64{11, 11, 13, 15.5}, s.Values())
	assert.Equal(t, "2024-01-05", s.LastDate().Format(time.DateOnly))
}

func TestCSVSeriesLoaderAcceptsAdjClose(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "MSFT.csv", "Date,AdjClose\n2024-01-02,\n2024-01-03,5\n2024-01-04,6\n")

	s, err := NewCSVSeriesLoader(dir, nil).Load(context.Background(), "MSFT")
	require.NoError(t, err)
	// leading empty close has nothing to fill from
	assert.Equal(t, []float64{5, 6}, s.Values())
}

func TestCSVSeriesLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	loader := NewCSVSeriesLoader(dir, nil)

	_, err := loader.Load(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrSeriesNotFound)

	writeFile(t, dir, "BAD.csv", "when,price\n2024-01-02,1\n")
	_, err = loader.Load(context.Background(), "BAD")
	assert.ErrorIs(t, err, domain.ErrInvalidSeries)

	writeFile(t, dir, "NUM.csv", "published_date,close\n2024-01-02,abc\n")
	_, err = loader.Load(context.Background(), "NUM")
	assert.ErrorIs(t, err, domain.ErrInvalidSeries)

	writeFile(t, dir, "EMPTY.csv", "")
	_, err = loader.Load(context.Background(), "EMPTY")
	assert.ErrorIs(t, err, domain.ErrInvalidSeries)
}

func TestCSVForecastSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "predicted")
	sink := NewCSVForecastSink(dir, 2, nil)
	table := &models.ForecastTable{
		Symbol:  "AAPL",
		Backend: "lagreg",
		Rows: []models.ForecastRow{
			{Date: time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC), Value: 101.236},
			{Date: time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC), Value: 102},
		},
	}

	require.NoError(t, sink.Save(context.Background(), table))

	b, err := os.ReadFile(filepath.Join(dir, "AAPL-lagreg-predicted.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date,Forecasted_Price\n2024-10-14,101.24\n2024-10-15,102.00\n", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// CSVForecastSink writes <dir>/<SYMBOL>-<backend>-predicted.csv.
type CSVForecastSink struct {
	dir       string
	precision int32
	l         *applogger.Logger
}

func NewCSVForecastSink(dir string, precision int32, l *applogger.Logger) *CSVForecastSink {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVForecastSink{dir: dir, precision: precision, l: l}
}

func (s *CSVForecastSink) Name() string { return "csv" }

// Path returns the output file for symbol and backend.
func (s *CSVForecastSink) Path(symbol, backend string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s-predicted.csv", symbol, backend))
}

// Save writes to a temp file in the target directory and renames it into place,
// so readers never see a partial table.
func (s *CSVForecastSink) Save(ctx context.Context, t *models.ForecastTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := s.Path(t.Symbol, t.Backend)
	tmp, err := os.CreateTemp(s.dir, ".forecast-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	_ = w.Write([]string{"date", "Forecasted_Price"})
	for _, r := range t.Rows {
		_ = w.Write([]string{
			r.Date.Format(time.DateOnly),
			decimal.NewFromFloat(r.Value).StringFixed(s.precision),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	s.l.Info("forecast saved",
		applogger.String("sink", s.Name()),
		applogger.String("symbol", t.Symbol),
		applogger.String("backend", t.Backend),
		applogger.String("path", path),
		applogger.Int("rows", len(t.Rows)),
	)
	return nil
}

var _ domrepo.ForecastSink = (*CSVForecastSink)(nil)

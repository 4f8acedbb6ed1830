package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

var (
	dateColumns  = []string{"published_date", "date"}
	closeColumns = []string{"close", "adjclose", "adj_close"}
)

// CSVSeriesLoader reads <dir>/<SYMBOL>.csv price histories.
type CSVSeriesLoader struct {
	dir string
	l   *applogger.Logger
}

func NewCSVSeriesLoader(dir string, l *applogger.Logger) *CSVSeriesLoader {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVSeriesLoader{dir: dir, l: l}
}

// Path returns the input file for symbol.
func (s *CSVSeriesLoader) Path(symbol string) string {
	return filepath.Join(s.dir, symbol+".csv")
}

func (s *CSVSeriesLoader) Load(ctx context.Context, symbol string) (*models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	path := s.Path(symbol)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSeriesNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	points, err := readPriceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidSeries, path, err)
	}
	series, err := normalizePoints(symbol, points)
	if err != nil {
		return nil, err
	}
	s.l.Debug("csv series loaded",
		applogger.String("symbol", symbol),
		applogger.String("path", path),
		applogger.Int("rows", len(points)),
		applogger.Int("points", series.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

func readPriceCSV(r io.Reader) ([]models.Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	dateIdx := columnIndex(header, dateColumns)
	closeIdx := columnIndex(header, closeColumns)
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("header %v needs one of %v and one of %v", header, dateColumns, closeColumns)
	}

	var points []models.Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateIdx >= len(rec) {
			return nil, fmt.Errorf("line %d: missing date column", line)
		}
		date, ok := util.ParseTime(strings.TrimSpace(rec[dateIdx]))
		if !ok {
			return nil, fmt.Errorf("line %d: bad date %q", line, rec[dateIdx])
		}
		value := math.NaN()
		if closeIdx < len(rec) {
			if value, err = parseClose(rec[closeIdx]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		points = append(points, models.Point{Date: date, Close: value})
	}
	return points, nil
}

func parseClose(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "nan", "null", "na":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bad close %q", raw)
	}
	return v, nil
}

func columnIndex(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
				return i
			}
		}
	}
	return -1
}

var _ domrepo.SeriesLoader = (*CSVSeriesLoader)(nil)

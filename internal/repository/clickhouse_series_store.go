package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

// CHSeriesStore reads daily closes from ClickHouse and stores forecast tables.
type CHSeriesStore struct {
	db        *sql.DB
	database  string
	prices    string
	forecasts string
	l         *applogger.Logger
}

func NewCHSeriesStore(ch *pkgch.Client, database, pricesTable, forecastsTable string, l *applogger.Logger) *CHSeriesStore {
	return NewCHSeriesStoreFromDB(ch.DB(), database, pricesTable, forecastsTable, l)
}

// NewCHSeriesStoreFromDB builds the store on an existing connection pool.
func NewCHSeriesStoreFromDB(db *sql.DB, database, pricesTable, forecastsTable string, l *applogger.Logger) *CHSeriesStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeriesStore{
		db:        db,
		database:  database,
		prices:    pricesTable,
		forecasts: forecastsTable,
		l:         l,
	}
}

// Schema returns the idempotent DDL for both tables.
func (s *CHSeriesStore) Schema() []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            date Date,
            close Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, date)`, s.pricesTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            run_id String,
            symbol LowCardinality(String),
            backend LowCardinality(String),
            generated_at DateTime64(3, 'UTC'),
            last_observed Date,
            step UInt16,
            date Date,
            value Float64
        ) ENGINE = MergeTree
        ORDER BY (symbol, backend, generated_at, step)`, s.forecastsTable()),
	}
}

func (s *CHSeriesStore) Name() string { return "clickhouse" }

func (s *CHSeriesStore) Load(ctx context.Context, symbol string) (*models.Series, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, close
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY date ASC
    `, s.pricesTable())
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		s.l.Error("clickhouse load_series query error",
			applogger.String("table", s.prices),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	points := make([]models.Point, 0, 1024)
	for rows.Next() {
		var (
			p  models.Point
			px sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &px); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Close = math.NaN()
		if px.Valid {
			p.Close = px.Float64
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrSeriesNotFound, symbol, s.prices)
	}

	series, err := normalizePoints(symbol, points)
	if err != nil {
		return nil, err
	}
	s.l.Debug("clickhouse load_series ok",
		applogger.String("table", s.prices),
		applogger.String("symbol", symbol),
		applogger.Int("rows", series.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// Save inserts every row of t in one block so the table lands whole or not at all.
func (s *CHSeriesStore) Save(ctx context.Context, t *models.ForecastTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin forecast insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (run_id, symbol, backend, generated_at, last_observed, step, date, value)", s.forecastsTable()))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare forecast insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range t.Rows {
		if _, err := stmt.ExecContext(ctx, t.RunID, t.Symbol, t.Backend, t.GeneratedAt, t.LastObserved, uint16(i), r.Date, r.Value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append forecast row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.l.Error("clickhouse save_forecast error",
			applogger.String("table", s.forecasts),
			applogger.String("symbol", t.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("commit forecast insert: %w", err)
	}
	s.l.Info("forecast saved",
		applogger.String("sink", s.Name()),
		applogger.String("symbol", t.Symbol),
		applogger.String("backend", t.Backend),
		applogger.Int("rows", len(t.Rows)),
	)
	return nil
}

// Latest returns the most recent run stored for symbol and backend.
func (s *CHSeriesStore) Latest(ctx context.Context, symbol, backend string) (*models.ForecastTable, error) {
	table := s.forecastsTable()
	q := fmt.Sprintf(`
        SELECT run_id, generated_at, last_observed, date, value
        FROM %s
        WHERE symbol = ? AND backend = ? AND run_id = (
            SELECT argMax(run_id, generated_at) FROM %s WHERE symbol = ? AND backend = ?
        )
        ORDER BY step ASC
    `, table, table)
	rows, err := s.db.QueryContext(ctx, q, symbol, backend, symbol, backend)
	if err != nil {
		return nil, fmt.Errorf("latest forecast: %w", err)
	}
	defer rows.Close()

	out := &models.ForecastTable{Symbol: symbol, Backend: backend}
	for rows.Next() {
		var r models.ForecastRow
		if err := rows.Scan(&out.RunID, &out.GeneratedAt, &out.LastObserved, &r.Date, &r.Value); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		out.Rows = append(out.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrForecastNotFound, symbol, backend)
	}
	return out, nil
}

func (s *CHSeriesStore) pricesTable() string    { return qualify(s.database, s.prices) }
func (s *CHSeriesStore) forecastsTable() string { return qualify(s.database, s.forecasts) }

func qualify(database, table string) string {
	if database == "" {
		return table
	}
	return database + "." + table
}

// IsNotFound reports whether err means the store had nothing for the request.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSeriesNotFound) || errors.Is(err, domain.ErrForecastNotFound)
}

var (
	_ domrepo.SeriesLoader   = (*CHSeriesStore)(nil)
	_ domrepo.ForecastSink   = (*CHSeriesStore)(nil)
	_ domrepo.ForecastReader = (*CHSeriesStore)(nil)
)

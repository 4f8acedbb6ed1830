package repository

import (
	"fmt"
	"math"
	"sort"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// normalizePoints sorts by date, keeps the first row of each duplicated date,
// forward-fills missing closes (NaN) and drops leading rows with no close.
func normalizePoints(symbol string, points []models.Point) (*models.Series, error) {
	for i := range points {
		points[i].Date = util.TruncateDay(points[i].Date)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	out := make([]models.Point, 0, len(points))
	last := math.NaN()
	for i, p := range points {
		if i > 0 && p.Date.Equal(points[i-1].Date) {
			continue
		}
		if math.IsNaN(p.Close) {
			if math.IsNaN(last) {
				continue
			}
			p.Close = last
		}
		if math.IsInf(p.Close, 0) {
			return nil, fmt.Errorf("%w: %s has infinite close on %s", domain.ErrInvalidSeries, symbol, p.Date.Format("2006-01-02"))
		}
		last = p.Close
		out = append(out, p)
	}

	s := &models.Series{Symbol: symbol, Points: out}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidSeries, symbol, err)
	}
	return s, nil
}

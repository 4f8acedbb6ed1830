package models

import (
	"fmt"
	"time"
)

// Point is one trading day observation.
type Point struct {
	Date  time.Time
	Close float64
}

// Series is a per-symbol daily price history, ascending by date.
type Series struct {
	Symbol string
	Points []Point
}

func (s *Series) Len() int { return len(s.Points) }

// Values returns the close prices in chronological order.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// LastDate returns the date of the most recent observation, or the zero time.
func (s *Series) LastDate() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// Validate checks dates are strictly increasing.
func (s *Series) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("point %d (%s) not after %s",
				i, s.Points[i].Date.Format(time.DateOnly), s.Points[i-1].Date.Format(time.DateOnly))
		}
	}
	return nil
}

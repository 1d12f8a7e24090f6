package shared

import (
	"math"
	"strconv"
	"time"
)

// Bar represents one OHLCV row for a fixed time interval.
//
// Optional fields a provider did not supply are NaN.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series represents an ordered, deduplicated sequence of bars for a symbol.
// A series is read-only once produced by the normalizer.
type Series struct {
	Symbol    string
	Frequency Frequency
	Bars      []Bar
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.Bars)
}

// Closes returns a copy of the close prices of the series.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for idx := range s.Bars {
		closes[idx] = s.Bars[idx].Close
	}

	return closes
}

// Timestamps returns a copy of the bar timestamps of the series.
func (s *Series) Timestamps() []time.Time {
	ts := make([]time.Time, len(s.Bars))
	for idx := range s.Bars {
		ts[idx] = s.Bars[idx].Timestamp
	}

	return ts
}

// Between returns a new series holding the bars within [start, end]. Zero bounds are open.
func (s *Series) Between(start time.Time, end time.Time) *Series {
	bars := make([]Bar, 0, len(s.Bars))
	for idx := range s.Bars {
		ts := s.Bars[idx].Timestamp
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		bars = append(bars, s.Bars[idx])
	}

	return &Series{
		Symbol:    s.Symbol,
		Frequency: s.Frequency,
		Bars:      bars,
	}
}

// MinInterval returns the smallest gap between consecutive bars, zero if there are
// fewer than two bars.
func (s *Series) MinInterval() time.Duration {
	var min time.Duration
	for idx := 1; idx < len(s.Bars); idx++ {
		gap := s.Bars[idx].Timestamp.Sub(s.Bars[idx-1].Timestamp)
		if min == 0 || gap < min {
			min = gap
		}
	}

	return min
}

// formatFloat stringifies a bar value, NaN becomes an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Table re-emits the series as a raw table using the canonical column names.
func (s *Series) Table() *RawTable {
	table := &RawTable{
		Columns: []string{"timestamp", "open", "high", "low", "close", "volume"},
		Rows:    make([]map[string]string, 0, len(s.Bars)),
	}

	for idx := range s.Bars {
		bar := s.Bars[idx]
		table.Rows = append(table.Rows, map[string]string{
			"timestamp": bar.Timestamp.Format(time.RFC3339Nano),
			"open":      formatFloat(bar.Open),
			"high":      formatFloat(bar.High),
			"low":       formatFloat(bar.Low),
			"close":     formatFloat(bar.Close),
			"volume":    formatFloat(bar.Volume),
		})
	}

	return table
}

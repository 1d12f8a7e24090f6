package normalize

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/etfsignal/shared"
)

// timestampLayouts are the accepted textual timestamp layouts, tried in order.
var timestampLayouts = []string{
	shared.DateTimeLayout,
	"2006-01-02 15:04",
	shared.DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006/01/02",
	shared.CompactDateLayout,
}

// Config represents the normalizer configuration.
type Config struct {
	// Symbol is the symbol the raw data belongs to.
	Symbol string
	// Frequency is the bar frequency of the raw data.
	Frequency shared.Frequency
	// Location is the timezone naive timestamps are parsed in, defaults to UTC.
	Location *time.Location
}

// columns represents the resolved schema of a raw table.
type columns struct {
	close    string
	open     string
	high     string
	low      string
	volume   string
	date     string
	time     string
	datetime string
}

// resolveColumns maps the raw schema to canonical fields.
func resolveColumns(schema []string) (*columns, error) {
	var cols columns
	var ok bool

	cols.close, ok = Resolve(Close, schema)
	if !ok {
		return nil, &shared.SchemaError{Field: Close.String(), Columns: schema}
	}

	cols.open, _ = Resolve(Open, schema)
	cols.high, _ = Resolve(High, schema)
	cols.low, _ = Resolve(Low, schema)
	cols.volume, _ = Resolve(Volume, schema)
	cols.date, _ = Resolve(Date, schema)
	cols.time, _ = Resolve(Time, schema)
	cols.datetime, _ = Resolve(DateTime, schema)

	if cols.date == "" && cols.time == "" && cols.datetime == "" {
		return nil, &shared.SchemaError{Field: "timestamp", Columns: schema}
	}

	return &cols, nil
}

// timestampValue extracts the raw timestamp string of a row. A date and a separate
// intraday time field are combined, otherwise the single timestamp bearing field is used.
func (c *columns) timestampValue(row map[string]string) string {
	if c.date != "" && c.time != "" {
		date := strings.TrimSpace(row[c.date])
		if fields := strings.Fields(date); len(fields) > 1 {
			date = fields[0]
		}
		return date + " " + strings.TrimSpace(row[c.time])
	}

	for _, col := range []string{c.datetime, c.date, c.time} {
		if col != "" {
			return strings.TrimSpace(row[col])
		}
	}

	return ""
}

// isDigits checks whether the provided string only holds ascii digits.
func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}

// ParseTimestamp parses a provider timestamp in the provided location. Pure integers
// longer than a compact date are treated as unix seconds, or milliseconds when large.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if isDigits(s) && len(s) != len(shared.CompactDateLayout) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing unix timestamp %q: %w", s, err)
		}
		if v > 1e11 {
			return time.UnixMilli(v).In(loc), nil
		}
		return time.Unix(v, 0).In(loc), nil
	}

	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("unknown timestamp format: %q", s)
}

// parseValue parses an optional numeric cell, absent or invalid values are NaN.
func parseValue(row map[string]string, col string) float64 {
	if col == "" {
		return math.NaN()
	}

	raw := strings.ReplaceAll(strings.TrimSpace(row[col]), ",", "")
	if raw == "" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}

	return v
}

// Normalize maps a raw provider table to a canonical series: columns are resolved
// through the synonym table, rows without a usable close are dropped, duplicate
// timestamps collapse to the last row seen and bars are sorted ascending.
func Normalize(table *shared.RawTable, cfg *Config) (*shared.Series, error) {
	if table == nil {
		return nil, fmt.Errorf("raw table cannot be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	cols, err := resolveColumns(table.Columns)
	if err != nil {
		return nil, err
	}

	positions := make(map[int64]int, len(table.Rows))
	bars := make([]shared.Bar, 0, len(table.Rows))

	for idx, row := range table.Rows {
		closePrice := parseValue(row, cols.close)
		if math.IsNaN(closePrice) || closePrice < 0 {
			continue
		}

		ts, err := ParseTimestamp(cols.timestampValue(row), cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp of row %d: %w", idx, err)
		}

		bar := shared.Bar{
			Timestamp: ts,
			Open:      parseValue(row, cols.open),
			High:      parseValue(row, cols.high),
			Low:       parseValue(row, cols.low),
			Close:     closePrice,
			Volume:    parseValue(row, cols.volume),
		}

		// Providers occasionally return a stale and a refreshed row for the same bar,
		// the last one seen wins.
		key := ts.UnixNano()
		if pos, ok := positions[key]; ok {
			bars[pos] = bar
			continue
		}

		positions[key] = len(bars)
		bars = append(bars, bar)
	}

	slices.SortStableFunc(bars, func(a, b shared.Bar) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	series := &shared.Series{
		Symbol:    cfg.Symbol,
		Frequency: cfg.Frequency,
		Bars:      bars,
	}

	return series, nil
}

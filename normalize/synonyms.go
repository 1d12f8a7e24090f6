package normalize

import (
	"strings"
)

// Field represents a canonical bar field.
type Field int

const (
	Close Field = iota
	Open
	High
	Low
	Volume
	Date
	Time
	DateTime
)

// String stringifies the provided field.
func (f Field) String() string {
	switch f {
	case Close:
		return "close"
	case Open:
		return "open"
	case High:
		return "high"
	case Low:
		return "low"
	case Volume:
		return "volume"
	case Date:
		return "date"
	case Time:
		return "time"
	case DateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// synonyms maps each canonical field to the provider column names known to carry it,
// in order of preference.
var synonyms = map[Field][]string{
	Close:    {"close", "收盘价", "收盘", "单位净值"},
	Open:     {"open", "开盘价", "开盘"},
	High:     {"high", "最高价", "最高"},
	Low:      {"low", "最低价", "最低"},
	Volume:   {"volume", "成交量", "成交额"},
	Date:     {"date", "日期", "净值日期"},
	Time:     {"time", "时间"},
	DateTime: {"datetime", "timestamp"},
}

// Synonyms returns a copy of the synonyms registered for the provided field.
func Synonyms(field Field) []string {
	return append([]string(nil), synonyms[field]...)
}

// Resolve returns the first column of the schema matching a synonym of the provided field.
func Resolve(field Field, columns []string) (string, bool) {
	for _, synonym := range synonyms[field] {
		for _, column := range columns {
			if strings.EqualFold(strings.TrimSpace(column), synonym) {
				return column, true
			}
		}
	}

	return "", false
}

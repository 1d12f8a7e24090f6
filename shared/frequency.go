package shared

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02"
	// DateTimeLayout is the format layout for parsing intraday timestamps.
	DateTimeLayout = "2006-01-02 15:04:05"
	// CompactDateLayout is the format layout for compact dates (e.g. 20250901).
	CompactDateLayout = "20060102"
	// ShanghaiLocation is the timezone the exchange listed funds trade in.
	ShanghaiLocation = "Asia/Shanghai"
)

// Frequency represents the market data bar interval.
type Frequency int

const (
	Daily Frequency = iota
	FiveMinute
	FifteenMinute
	ThirtyMinute
	SixtyMinute
)

// String stringifies the provided frequency.
func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case FiveMinute:
		return "5min"
	case FifteenMinute:
		return "15min"
	case ThirtyMinute:
		return "30min"
	case SixtyMinute:
		return "60min"
	default:
		return "unknown"
	}
}

// Minutes returns the bar interval in minutes, zero for daily bars.
func (f Frequency) Minutes() int {
	switch f {
	case FiveMinute:
		return 5
	case FifteenMinute:
		return 15
	case ThirtyMinute:
		return 30
	case SixtyMinute:
		return 60
	default:
		return 0
	}
}

// Intraday returns true if the frequency is below a day.
func (f Frequency) Intraday() bool {
	return f.Minutes() > 0
}

// ParseFrequency parses the provided frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily", "1d", "day":
		return Daily, nil
	case "5min", "5m":
		return FiveMinute, nil
	case "15min", "15m":
		return FifteenMinute, nil
	case "30min", "30m":
		return ThirtyMinute, nil
	case "60min", "60m", "1h":
		return SixtyMinute, nil
	default:
		return Daily, fmt.Errorf("unknown frequency provided: %s", s)
	}
}

// ShanghaiTime returns the current time in shanghai.
func ShanghaiTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(ShanghaiLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading shanghai timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}

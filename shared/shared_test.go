package shared

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func TestFrequency(t *testing.T) {
	tests := []struct {
		input    string
		want     Frequency
		minutes  int
		intraday bool
	}{
		{input: "", want: Daily, minutes: 0, intraday: false},
		{input: "Daily", want: Daily, minutes: 0, intraday: false},
		{input: "5min", want: FiveMinute, minutes: 5, intraday: true},
		{input: "15m", want: FifteenMinute, minutes: 15, intraday: true},
		{input: " 30min ", want: ThirtyMinute, minutes: 30, intraday: true},
		{input: "1h", want: SixtyMinute, minutes: 60, intraday: true},
	}

	for _, tt := range tests {
		freq, err := ParseFrequency(tt.input)
		assert.NoError(t, err)
		assert.Equal(t, freq, tt.want)
		assert.Equal(t, freq.Minutes(), tt.minutes)
		assert.Equal(t, freq.Intraday(), tt.intraday)
	}

	// Ensure unknown frequencies are rejected.
	_, err := ParseFrequency("weekly")
	assert.Error(t, err)

	// Ensure frequencies stringify to their parseable names.
	for _, freq := range []Frequency{Daily, FiveMinute, FifteenMinute, ThirtyMinute, SixtyMinute} {
		parsed, err := ParseFrequency(freq.String())
		assert.NoError(t, err)
		assert.Equal(t, parsed, freq)
	}
	assert.Equal(t, Frequency(99).String(), "unknown")
}

func TestSeries(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	series := &Series{
		Symbol:    "518880",
		Frequency: Daily,
		Bars: []Bar{
			{Timestamp: day(2), Open: 5.1, High: 5.15, Low: 5.08, Close: 5.12, Volume: 1000},
			{Timestamp: day(3), Open: 5.12, High: 5.2, Low: 5.1, Close: 5.18, Volume: math.NaN()},
			{Timestamp: day(6), Open: 5.18, High: 5.19, Low: 5.14, Close: 5.16, Volume: 800},
		},
	}

	// Ensure accessors return the bar fields in order.
	assert.Equal(t, series.Len(), 3)
	if diff := cmp.Diff([]float64{5.12, 5.18, 5.16}, series.Closes()); diff != "" {
		t.Errorf("closes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, series.Timestamps()[2], day(6))

	// Ensure the minimum interval ignores the weekend gap.
	assert.Equal(t, series.MinInterval(), 24*time.Hour)
	assert.Equal(t, (&Series{}).MinInterval(), time.Duration(0))

	// Ensure between is inclusive and zero bounds are open.
	sub := series.Between(day(3), day(6))
	assert.Equal(t, sub.Len(), 2)
	assert.Equal(t, sub.Symbol, "518880")
	assert.Equal(t, series.Between(time.Time{}, day(2)).Len(), 1)
	assert.Equal(t, series.Between(time.Time{}, time.Time{}).Len(), 3)

	// Ensure the table uses canonical columns and leaves missing values empty.
	table := series.Table()
	assert.Equal(t, table.Len(), 3)
	assert.True(t, table.HasColumn("close"))
	assert.Equal(t, table.Rows[0]["close"], "5.12")
	assert.Equal(t, table.Rows[1]["volume"], "")
}

func TestRawTable(t *testing.T) {
	table := NewRawTable("date", "close")
	table.Append("2025-01-02", "5.12")
	table.Append("2025-01-03")

	// Ensure rows are matched to columns positionally.
	assert.Equal(t, table.Len(), 2)
	assert.Equal(t, table.Rows[0]["close"], "5.12")
	_, ok := table.Rows[1]["close"]
	assert.False(t, ok)
	assert.False(t, table.HasColumn("open"))

	var missing *RawTable
	assert.Equal(t, missing.Len(), 0)
}

func TestPosition(t *testing.T) {
	// Ensure positions map to their trading actions.
	assert.Equal(t, Long.Action(), "buy")
	assert.Equal(t, Short.Action(), "sell")
	assert.Equal(t, Flat.Action(), "stay out")
	assert.Equal(t, Long.String(), "long")
	assert.Equal(t, Position(7).String(), "unknown")
}

func TestErrors(t *testing.T) {
	// Ensure the unavailable error keeps every provider failure inspectable.
	timeout := errors.New("timeout")
	err := error(&DataUnavailableError{Symbol: "518880", Attempts: []error{timeout}})
	assert.True(t, errors.Is(err, timeout))

	var unavailable *DataUnavailableError
	assert.True(t, errors.As(err, &unavailable))

	insufficient := &InsufficientDataError{Have: 1, Need: 2}
	assert.NotEqual(t, insufficient.Error(), "")
}

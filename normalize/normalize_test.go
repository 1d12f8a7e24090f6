package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dnldd/etfsignal/shared"
	"github.com/peterldowns/testy/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		columns []string
		want    string
		found   bool
	}{
		{
			name:    "english close",
			field:   Close,
			columns: []string{"Date", "Close", "Volume"},
			want:    "Close",
			found:   true,
		},
		{
			name:    "eastmoney close",
			field:   Close,
			columns: []string{"日期", "开盘", "收盘", "最高", "最低"},
			want:    "收盘",
			found:   true,
		},
		{
			name:    "fund net value close",
			field:   Close,
			columns: []string{"净值日期", "单位净值", "累计净值"},
			want:    "单位净值",
			found:   true,
		},
		{
			name:    "preferred synonym wins",
			field:   Close,
			columns: []string{"收盘", "收盘价"},
			want:    "收盘价",
			found:   true,
		},
		{
			name:    "turnover is a volume fallback",
			field:   Volume,
			columns: []string{"日期", "成交额"},
			want:    "成交额",
			found:   true,
		},
		{
			name:    "volume preferred over turnover",
			field:   Volume,
			columns: []string{"成交额", "成交量"},
			want:    "成交量",
			found:   true,
		},
		{
			name:    "padded column",
			field:   Open,
			columns: []string{" open "},
			want:    " open ",
			found:   true,
		},
		{
			name:    "no match",
			field:   High,
			columns: []string{"price", "amount"},
			want:    "",
			found:   false,
		},
	}

	for _, test := range tests {
		col, ok := Resolve(test.field, test.columns)
		if ok != test.found {
			t.Errorf("%s: expected found %v, got %v", test.name, test.found, ok)
		}
		if col != test.want {
			t.Errorf("%s: expected column %q, got %q", test.name, test.want, col)
		}
	}
}

func TestSynonymTable(t *testing.T) {
	// Ensure every canonical field has at least one synonym and synonyms are not shared
	// between fields.
	seen := make(map[string]Field)
	for _, field := range []Field{Close, Open, High, Low, Volume, Date, Time, DateTime} {
		syns := Synonyms(field)
		assert.GreaterThan(t, len(syns), 0)
		for _, syn := range syns {
			owner, ok := seen[syn]
			if ok {
				t.Errorf("synonym %q registered for both %s and %s", syn, owner, field)
			}
			seen[syn] = field
		}
	}

	// Ensure the returned synonyms are a copy.
	syns := Synonyms(Close)
	syns[0] = "mutated"
	assert.Equal(t, Synonyms(Close)[0], "close")
}

func TestParseTimestamp(t *testing.T) {
	_, loc, err := shared.ShanghaiTime()
	assert.NoError(t, err)

	tests := []struct {
		name  string
		value string
		want  time.Time
		err   bool
	}{
		{
			name:  "date",
			value: "2025-08-01",
			want:  time.Date(2025, 8, 1, 0, 0, 0, 0, loc),
		},
		{
			name:  "datetime",
			value: "2025-08-01 10:30:00",
			want:  time.Date(2025, 8, 1, 10, 30, 0, 0, loc),
		},
		{
			name:  "datetime without seconds",
			value: "2025-08-01 10:30",
			want:  time.Date(2025, 8, 1, 10, 30, 0, 0, loc),
		},
		{
			name:  "compact date",
			value: "20250801",
			want:  time.Date(2025, 8, 1, 0, 0, 0, 0, loc),
		},
		{
			name:  "unix seconds",
			value: "1754006400",
			want:  time.Unix(1754006400, 0),
		},
		{
			name:  "unix milliseconds",
			value: "1754006400000",
			want:  time.Unix(1754006400, 0),
		},
		{
			name:  "rfc3339",
			value: "2025-08-01T10:30:00Z",
			want:  time.Date(2025, 8, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "empty",
			value: " ",
			err:   true,
		},
		{
			name:  "garbage",
			value: "yesterday",
			err:   true,
		},
	}

	for _, test := range tests {
		ts, err := ParseTimestamp(test.value, loc)
		if test.err {
			if err == nil {
				t.Errorf("%s: expected an error", test.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
			continue
		}
		if !ts.Equal(test.want) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, ts)
		}
	}
}

func TestNormalizeSchemaErrors(t *testing.T) {
	// Ensure a missing close field fails with a schema error.
	table := shared.NewRawTable("日期", "开盘", "成交量")
	table.Append("2025-01-02", "4.5", "100")

	_, err := Normalize(table, nil)
	var schemaErr *shared.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, schemaErr.Field, "close")

	// Ensure a missing timestamp field fails with a schema error.
	table = shared.NewRawTable("close", "volume")
	table.Append("4.5", "100")

	_, err = Normalize(table, nil)
	assert.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, schemaErr.Field, "timestamp")

	// Ensure a nil table is rejected.
	_, err = Normalize(nil, nil)
	assert.Error(t, err)

	// Ensure an unparseable timestamp fails the run.
	table = shared.NewRawTable("date", "close")
	table.Append("not a date", "4.5")
	_, err = Normalize(table, nil)
	assert.Error(t, err)
}

func TestNormalizeEastMoneyDaily(t *testing.T) {
	_, loc, err := shared.ShanghaiTime()
	assert.NoError(t, err)

	table := shared.NewRawTable("日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额")
	table.Append("2025-01-03", "4.6", "4.7", "4.8", "4.5", "2000", "9400")
	table.Append("2025-01-02", "4.5", "4.6", "4.7", "4.4", "1000", "4600")
	// A refreshed row for an existing bar wins.
	table.Append("2025-01-03", "4.6", "4.75", "4.8", "4.5", "2100", "9975")
	// Rows without a usable close are dropped.
	table.Append("2025-01-06", "4.7", "", "4.8", "4.6", "10", "47")
	table.Append("2025-01-07", "4.7", "-1", "4.8", "4.6", "10", "47")

	series, err := Normalize(table, &Config{Symbol: "518880", Frequency: shared.Daily, Location: loc})
	assert.NoError(t, err)
	assert.Equal(t, series.Symbol, "518880")
	assert.Equal(t, series.Len(), 2)

	first := series.Bars[0]
	assert.True(t, first.Timestamp.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, loc)))
	assert.Equal(t, first.Open, 4.5)
	assert.Equal(t, first.High, 4.7)
	assert.Equal(t, first.Low, 4.4)
	assert.Equal(t, first.Close, 4.6)
	assert.Equal(t, first.Volume, float64(1000))

	second := series.Bars[1]
	assert.Equal(t, second.Close, 4.75)
	assert.Equal(t, second.Volume, float64(2100))
}

func TestNormalizeIntraday(t *testing.T) {
	_, loc, err := shared.ShanghaiTime()
	assert.NoError(t, err)

	// Ensure a separate date and time field are combined.
	table := shared.NewRawTable("date", "time", "close")
	table.Append("2025-01-02", "10:30:00", "4.6")
	table.Append("2025-01-02", "09:30:00", "4.5")

	series, err := Normalize(table, &Config{Frequency: shared.SixtyMinute, Location: loc})
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 2)
	assert.True(t, series.Bars[0].Timestamp.Equal(time.Date(2025, 1, 2, 9, 30, 0, 0, loc)))
	assert.True(t, series.Bars[1].Timestamp.Equal(time.Date(2025, 1, 2, 10, 30, 0, 0, loc)))
	assert.True(t, math.IsNaN(series.Bars[0].Open))
	assert.True(t, math.IsNaN(series.Bars[0].Volume))

	// Ensure a single full datetime field is parsed on its own.
	table = shared.NewRawTable("时间", "开盘", "收盘")
	table.Append("2025-01-02 10:30", "4.55", "4.6")
	table.Append("2025-01-02 11:30", "4.6", "4.65")

	series, err = Normalize(table, &Config{Frequency: shared.SixtyMinute, Location: loc})
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 2)
	assert.Equal(t, series.MinInterval(), time.Hour)
}

func TestNormalizeOrderingAndIdempotence(t *testing.T) {
	table := shared.NewRawTable("Date", "Open", "High", "Low", "Close", "Volume")
	table.Append("1754265600", "300", "302", "299", "301", "1000")
	table.Append("1754006400", "298", "300", "297", "299", "900")
	table.Append("1754092800", "299", "301", "298", "300", "950")
	table.Append("1754006400", "298", "300", "297", "299.5", "910")
	table.Append("1754179200", "300", "301", "299", "300.5", "")

	series, err := Normalize(table, &Config{Symbol: "GLD"})
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 4)

	// Ensure timestamps are strictly increasing.
	for idx := 1; idx < series.Len(); idx++ {
		if !series.Bars[idx-1].Timestamp.Before(series.Bars[idx].Timestamp) {
			t.Fatalf("timestamps not strictly increasing at %d", idx)
		}
	}
	assert.Equal(t, series.Bars[0].Close, 299.5)

	// Ensure normalizing an already canonical series is a no-op.
	again, err := Normalize(series.Table(), &Config{Symbol: "GLD"})
	assert.NoError(t, err)
	assert.Equal(t, again.Len(), series.Len())
	for idx := range series.Bars {
		want := series.Bars[idx]
		got := again.Bars[idx]
		assert.True(t, want.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, got.Close, want.Close)
		assert.Equal(t, got.Open, want.Open)
		assert.Equal(t, math.IsNaN(got.Volume), math.IsNaN(want.Volume))
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnldd/etfsignal/fetch"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// fileConfig returns a config reading the bundled historic data file.
func fileConfig() *Config {
	cfg := &Config{
		Symbols:      []string{"518880", "159934", "510300"},
		Start:        "20250101",
		End:          "20250110",
		DataFilePath: "fetch/testdata/etf.csv",
		Strategy:     "ma-crossover",
		FastWindow:   1,
		SlowWindow:   2,
	}
	cfg.applyDefaults()

	return cfg
}

func TestAppRun(t *testing.T) {
	cfg := fileConfig()
	dir := t.TempDir()
	cfg.OutputCSV = filepath.Join(dir, "etf.csv")
	cfg.ChartPath = filepath.Join(dir, "equity.html")
	assert.NoError(t, cfg.Validate())

	var out bytes.Buffer
	a, err := newApp(cfg, &out, &log.Logger)
	assert.NoError(t, err)

	// Ensure a run reports every symbol and writes its artifacts.
	err = a.run(context.Background())
	assert.NoError(t, err)
	report := out.String()
	assert.True(t, strings.Contains(report, "518880"))
	assert.True(t, strings.Contains(report, "159934"))
	assert.True(t, strings.Contains(report, "510300"))

	_, err = os.Stat(cfg.OutputCSV)
	assert.NoError(t, err)
	_, err = os.Stat(cfg.ChartPath)
	assert.NoError(t, err)
}

func TestAppCollect(t *testing.T) {
	cfg := fileConfig()
	cfg.Collect = true

	var out bytes.Buffer
	a, err := newApp(cfg, &out, &log.Logger)
	assert.NoError(t, err)

	// Ensure collect mode writes the normalized bars without running strategies.
	err = a.run(context.Background())
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, len(lines), 6)
	assert.True(t, strings.HasSuffix(lines[0], "symbol,timestamp,open,high,low,close,volume"))
	assert.Equal(t, lines[1], "518880,2025-01-02,5.1,5.15,5.08,5.12,1000")
}

func TestAppCollectDateRange(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{
			name:  "single day",
			start: "20250103",
			end:   "20250103",
			want:  []string{"518880,2025-01-03,5.12,5.2,5.11,5.18,1200"},
		},
		{
			name:  "inclusive bounds",
			start: "20250102",
			end:   "20250105",
			want: []string{
				"518880,2025-01-02,5.1,5.15,5.08,5.12,1000",
				"518880,2025-01-03,5.12,5.2,5.11,5.18,1200",
			},
		},
		{
			name:  "open end",
			start: "20250103",
			end:   "",
			want: []string{
				"518880,2025-01-03,5.12,5.2,5.11,5.18,1200",
				"518880,2025-01-06,5.18,5.19,5.14,5.16,900",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fileConfig()
			cfg.Symbols = []string{"518880"}
			cfg.Start = tt.start
			cfg.End = tt.end
			cfg.Collect = true

			var out bytes.Buffer
			a, err := newApp(cfg, &out, &log.Logger)
			assert.NoError(t, err)

			// Ensure the shanghai trading days of the range are kept exactly.
			err = a.run(context.Background())
			assert.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			assert.Equal(t, lines[1:], tt.want)
		})
	}
}

// FundListerMock lists scripted funds.
type FundListerMock struct {
	funds []fetch.Fund
	err   error
	calls int
}

func (m *FundListerMock) ListFunds(ctx context.Context) ([]fetch.Fund, error) {
	m.calls++
	return m.funds, m.err
}

func TestAppCollectAll(t *testing.T) {
	cfg := fileConfig()
	cfg.Symbols = []string{"all"}
	cfg.Collect = true
	assert.NoError(t, cfg.Validate())

	var out bytes.Buffer
	a, err := newApp(cfg, &out, &log.Logger)
	assert.NoError(t, err)
	assert.NotNil(t, a.lister)

	lister := &FundListerMock{funds: []fetch.Fund{
		{Code: "159934", Name: "黄金ETF"},
		{Code: "518880", Name: "黄金ETF"},
	}}
	a.lister = lister

	// Ensure every listed fund is collected.
	err = a.run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, lister.calls, 1)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, len(lines), 6)
	assert.True(t, strings.HasPrefix(lines[1], "159934,2025-01-02"))

	// Ensure a listing failure fails the run.
	lister.err = errors.New("listing unavailable")
	err = a.run(context.Background())
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "listing funds"))
}

func TestAppScheduledRun(t *testing.T) {
	cfg := fileConfig()
	cfg.Symbols = []string{"518880"}
	cfg.End = ""
	cfg.Collect = true

	var out bytes.Buffer
	a, err := newApp(cfg, &out, &log.Logger)
	assert.NoError(t, err)

	// Ensure repeated scheduled passes each collect the latest bars.
	a.scheduledRun(context.Background())
	first := out.String()
	out.Reset()
	a.scheduledRun(context.Background())
	assert.Equal(t, out.String(), first)
	assert.True(t, strings.Contains(first, "518880,2025-01-06"))
}

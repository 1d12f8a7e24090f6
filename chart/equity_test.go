package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/etfsignal/backtest"
	"github.com/dnldd/etfsignal/evaluate"
	"github.com/dnldd/etfsignal/pipeline"
	"github.com/dnldd/etfsignal/shared"
	"github.com/peterldowns/testy/assert"
)

// makeResult creates a run result over the provided closes with an always-long strategy.
func makeResult(t *testing.T, symbol string, closes ...float64) *pipeline.Result {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]shared.Bar, len(closes))
	applied := make([]shared.Position, len(closes))
	for idx, c := range closes {
		bars[idx] = shared.Bar{Timestamp: start.AddDate(0, 0, idx), Close: c}
		applied[idx] = shared.Long
	}

	returns, err := backtest.Run(bars, applied)
	assert.NoError(t, err)

	strat, err := evaluate.Evaluate(returns.Strategy, evaluate.TradingDaysPerYear)
	assert.NoError(t, err)
	bench, err := evaluate.Evaluate(returns.Benchmark, evaluate.TradingDaysPerYear)
	assert.NoError(t, err)

	return &pipeline.Result{
		Symbol:    symbol,
		Series:    &shared.Series{Symbol: symbol, Frequency: shared.Daily, Bars: bars},
		Returns:   returns,
		Strategy:  strat,
		Benchmark: bench,
	}
}

func TestEquityLine(t *testing.T) {
	res := makeResult(t, "GLD", 100, 101, 98.98, 101.9494)

	// Ensure both curves are plotted against the return timestamps.
	line := EquityLine(res)
	assert.Equal(t, len(line.MultiSeries), 2)
	assert.Equal(t, line.MultiSeries[0].Name, "strategy")
	assert.Equal(t, line.MultiSeries[1].Name, "benchmark")
}

func TestRenderEquity(t *testing.T) {
	results := []*pipeline.Result{
		makeResult(t, "GLD", 100, 101, 98.98, 101.9494),
		makeResult(t, "518880", 5.1, 5.2, 5.15),
	}

	// Ensure every run is rendered into one page.
	var buf bytes.Buffer
	err := RenderEquity(&buf, results)
	assert.NoError(t, err)
	out := buf.String()
	assert.True(t, strings.Contains(out, "GLD equity curve"))
	assert.True(t, strings.Contains(out, "518880 equity curve"))
	assert.True(t, strings.Contains(out, "2025-04-02"))

	// Ensure rendering nothing errors.
	err = RenderEquity(&buf, nil)
	assert.Error(t, err)

	// Ensure pages can be written to disk.
	path := filepath.Join(t.TempDir(), "equity.html")
	err = RenderEquityFile(path, results)
	assert.NoError(t, err)
	info, err := os.Stat(path)
	assert.NoError(t, err)
	assert.True(t, info.Size() > 0)
}

// Package backtest replays lagged positions over realized bar returns.
package backtest

import (
	"fmt"
	"time"

	"github.com/dnldd/etfsignal/shared"
)

// Returns represents the per-bar outcome of a backtest. The first bar has no
// return and is excluded, every slice has one entry less than the input bars.
type Returns struct {
	Timestamps []time.Time
	// Benchmark is the always-long bar to bar return.
	Benchmark []float64
	// Strategy is the benchmark return weighted by the applied position.
	Strategy []float64
	// BenchmarkCurve and StrategyCurve are the compounded growth of one unit.
	BenchmarkCurve []float64
	StrategyCurve  []float64
}

// Len returns the number of return observations.
func (r *Returns) Len() int {
	return len(r.Benchmark)
}

// Compound returns the cumulative growth of one unit over the provided returns.
func Compound(returns []float64) []float64 {
	curve := make([]float64, len(returns))
	cum := 1.0
	for idx, r := range returns {
		cum *= 1 + r
		curve[idx] = cum
	}

	return curve
}

// Run computes the benchmark and strategy returns of the provided bars and applied
// positions. applied[t] is the position held over the return from bar t-1 to bar t.
func Run(bars []shared.Bar, applied []shared.Position) (*Returns, error) {
	if len(bars) != len(applied) {
		return nil, fmt.Errorf("bars (%d) and positions (%d) are misaligned", len(bars), len(applied))
	}
	if len(bars) < 2 {
		return nil, &shared.InsufficientDataError{Have: len(bars), Need: 2}
	}

	n := len(bars) - 1
	res := &Returns{
		Timestamps: make([]time.Time, n),
		Benchmark:  make([]float64, n),
		Strategy:   make([]float64, n),
	}

	for t := 1; t < len(bars); t++ {
		prev := bars[t-1].Close
		if prev == 0 {
			return nil, fmt.Errorf("zero close at %s", bars[t-1].Timestamp.Format(shared.DateTimeLayout))
		}

		ret := bars[t].Close/prev - 1
		res.Timestamps[t-1] = bars[t].Timestamp
		res.Benchmark[t-1] = ret
		res.Strategy[t-1] = float64(applied[t]) * ret
	}

	res.BenchmarkCurve = Compound(res.Benchmark)
	res.StrategyCurve = Compound(res.Strategy)

	return res, nil
}

// Package evaluate summarizes return series into performance statistics.
package evaluate

import (
	"fmt"
	"math"

	"github.com/dnldd/etfsignal/shared"
	"github.com/montanaflynn/stats"
)

const (
	// TradingDaysPerYear is the conventional number of daily bars in a year.
	TradingDaysPerYear = 252

	// dispersions below this are treated as zero variance.
	minDeviation = 1e-12
)

// Summary represents the performance statistics of a return series.
type Summary struct {
	Observations int
	Mean         float64
	StdDev       float64
	TotalReturn  float64
	// Sharpe is annualized with the periods per year the summary was computed with,
	// NaN when undefined.
	Sharpe         float64
	PeriodsPerYear float64
	// Undefined wraps shared.ErrEvaluationUndefined when a statistic could not be computed.
	Undefined error
}

// TotalReturn returns the compounded return of the provided series.
func TotalReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}

	return growth - 1
}

// Evaluate computes the summary of the provided per-bar returns. periodsPerYear
// annualizes the sharpe ratio and must match the bar frequency of the returns.
func Evaluate(returns []float64, periodsPerYear float64) (*Summary, error) {
	if periodsPerYear <= 0 || math.IsNaN(periodsPerYear) {
		return nil, fmt.Errorf("periods per year must be positive, got %v", periodsPerYear)
	}

	summary := &Summary{
		Observations:   len(returns),
		Mean:           math.NaN(),
		StdDev:         math.NaN(),
		TotalReturn:    TotalReturn(returns),
		Sharpe:         math.NaN(),
		PeriodsPerYear: periodsPerYear,
	}

	if len(returns) < 2 {
		if len(returns) == 1 {
			summary.Mean = returns[0]
		}
		summary.Undefined = fmt.Errorf("sharpe needs at least 2 returns, got %d: %w",
			len(returns), shared.ErrEvaluationUndefined)
		return summary, nil
	}

	data := stats.Float64Data(returns)
	mean, err := stats.Mean(data)
	if err != nil {
		return nil, fmt.Errorf("computing mean return: %w", err)
	}
	std, err := stats.StandardDeviationSample(data)
	if err != nil {
		return nil, fmt.Errorf("computing return deviation: %w", err)
	}

	summary.Mean = mean
	summary.StdDev = std

	if math.IsNaN(std) || std < minDeviation {
		summary.Undefined = fmt.Errorf("sharpe undefined for zero return variance: %w",
			shared.ErrEvaluationUndefined)
		return summary, nil
	}

	summary.Sharpe = mean / std * math.Sqrt(periodsPerYear)

	return summary, nil
}

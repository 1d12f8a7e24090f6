// Package report prints batch outcomes as console tables.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/dnldd/etfsignal/pipeline"
	"github.com/olekukonko/tablewriter"
)

// formatPercent stringifies a return as a percentage, undefined values are n/a.
func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}

	return fmt.Sprintf("%.2f%%", v*100)
}

// formatRatio stringifies a ratio, undefined values are n/a.
func formatRatio(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}

	return fmt.Sprintf("%.3f", v)
}

// Write prints the successful runs of the batch followed by its failures.
func Write(w io.Writer, batch *pipeline.Batch) error {
	if batch == nil {
		return fmt.Errorf("batch cannot be nil")
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"symbol", "source", "bars", "strategy", "benchmark",
		"strategy sharpe", "benchmark sharpe", "next bar", "predicted close"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, res := range batch.Results {
		table.Append([]string{
			res.Symbol,
			res.Source,
			fmt.Sprint(res.Frame.Len()),
			formatPercent(res.Strategy.TotalReturn),
			formatPercent(res.Benchmark.TotalReturn),
			formatRatio(res.Strategy.Sharpe),
			formatRatio(res.Benchmark.Sharpe),
			res.Next.Action(),
			formatRatio(res.Prediction),
		})
	}

	table.Render()

	if len(batch.Failures) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(batch.Failures))
	for symbol := range batch.Failures {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	failures := tablewriter.NewWriter(w)
	failures.SetHeader([]string{"symbol", "error"})
	failures.SetAutoWrapText(false)
	for _, symbol := range symbols {
		failures.Append([]string{symbol, batch.Failures[symbol].Error()})
	}

	failures.Render()

	return nil
}

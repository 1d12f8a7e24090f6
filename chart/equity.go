// Package chart renders backtest equity curves as interactive html charts.
package chart

import (
	"fmt"
	"io"
	"os"

	"github.com/dnldd/etfsignal/pipeline"
	"github.com/dnldd/etfsignal/shared"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	colorStrategy  = "#c23531"
	colorBenchmark = "#2f4554"
)

// lineData converts curve values to chart points.
func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for idx, v := range values {
		data[idx] = opts.LineData{Value: v}
	}

	return data
}

// EquityLine builds the strategy and benchmark equity curves of a run.
func EquityLine(res *pipeline.Result) *charts.Line {
	layout := shared.DateLayout
	if res.Series != nil && res.Series.Frequency.Intraday() {
		layout = shared.DateTimeLayout
	}

	xAxis := make([]string, len(res.Returns.Timestamps))
	for idx, ts := range res.Returns.Timestamps {
		xAxis[idx] = ts.Format(layout)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s equity curve", res.Symbol),
			Subtitle: fmt.Sprintf("strategy %.2f%%, benchmark %.2f%%",
				res.Strategy.TotalReturn*100, res.Benchmark.TotalReturn*100),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	noSymbol := charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})
	line.SetXAxis(xAxis).
		AddSeries("strategy", lineData(res.Returns.StrategyCurve), noSymbol,
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorStrategy, Width: 2})).
		AddSeries("benchmark", lineData(res.Returns.BenchmarkCurve), noSymbol,
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorBenchmark, Width: 2}))

	return line
}

// RenderEquity renders the equity curves of the provided runs as one html page.
func RenderEquity(w io.Writer, results []*pipeline.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to chart")
	}

	page := components.NewPage()
	page.PageTitle = "etfsignal equity curves"
	for _, res := range results {
		page.AddCharts(EquityLine(res))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering equity page: %w", err)
	}

	return nil
}

// RenderEquityFile renders the equity curves to the provided html file path.
func RenderEquityFile(path string, results []*pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	err = RenderEquity(f, results)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", path, cerr)
	}

	return err
}

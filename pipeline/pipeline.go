// Package pipeline runs the fetch, normalize, indicator, signal, backtest and
// evaluation stages for one symbol or a batch of symbols.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/etfsignal/backtest"
	"github.com/dnldd/etfsignal/evaluate"
	"github.com/dnldd/etfsignal/fetch"
	"github.com/dnldd/etfsignal/indicator"
	"github.com/dnldd/etfsignal/normalize"
	"github.com/dnldd/etfsignal/regression"
	"github.com/dnldd/etfsignal/shared"
	"github.com/dnldd/etfsignal/strategy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DataFetcher defines the requirements for retrieving raw market data.
type DataFetcher interface {
	// Fetch retrieves a raw table for the symbol along with the attempt that produced it.
	Fetch(ctx context.Context, symbol string, start time.Time, end time.Time) (*fetch.Result, error)
}

// Ensure the fetch manager implements the DataFetcher interface.
var _ DataFetcher = (*fetch.Manager)(nil)

// Config represents the pipeline configuration.
type Config struct {
	// Fetcher retrieves raw market data.
	Fetcher DataFetcher
	// Start and End bound the evaluated bars, inclusive. Zero values are open.
	Start time.Time
	End   time.Time
	// Frequency is the requested bar interval.
	Frequency shared.Frequency
	// Preset is the strategy traded.
	Preset strategy.Preset
	// Params tunes the preset windows.
	Params strategy.Params
	// PeriodsPerYear annualizes the sharpe ratio. It must match the bar frequency.
	PeriodsPerYear float64
	// MinRows is the minimum number of usable rows after the indicator warm-up.
	MinRows int
	// TrainRatio is the regression training share of the predictor preset.
	TrainRatio float64
	// Location is the timezone naive provider timestamps are parsed in. Start and
	// End are calendar days in this location.
	Location *time.Location
	// Now returns the current time, time.Now when nil. Runs without an End fetch
	// up to it.
	Now func() time.Time
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("data fetcher cannot be nil"))
	}
	if cfg.PeriodsPerYear <= 0 {
		errs = errors.Join(errs, fmt.Errorf("periods per year must be positive"))
	}
	if !cfg.Start.IsZero() && !cfg.End.IsZero() && cfg.End.Before(cfg.Start) {
		errs = errors.Join(errs, fmt.Errorf("end date cannot be before start date"))
	}
	if cfg.Preset.String() == "unknown" {
		errs = errors.Join(errs, fmt.Errorf("unknown strategy preset"))
	}
	if cfg.Frequency.String() == "unknown" {
		errs = errors.Join(errs, fmt.Errorf("unknown frequency"))
	}
	if cfg.TrainRatio < 0 || cfg.TrainRatio >= 1 {
		errs = errors.Join(errs, fmt.Errorf("train ratio must be within [0, 1)"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Result represents the outcome of one pipeline run for a symbol.
type Result struct {
	RunID  uuid.UUID
	Symbol string
	// Source names the fetch attempt that supplied the data.
	Source string
	Series *shared.Series
	// Frame holds the evaluated rows, the test segment for the predictor preset.
	Frame *indicator.Frame
	// Model is the fitted price model, nil unless the preset predicts prices.
	Model   *regression.Model
	Signal  *strategy.Signal
	Returns *backtest.Returns
	// Strategy and Benchmark summarize the strategy and always-long returns.
	Strategy  *evaluate.Summary
	Benchmark *evaluate.Summary
	// Next is the position to hold over the bar after NextAt.
	Next   shared.Position
	NextAt time.Time
	// Prediction is the next close predicted by the model, NaN without one.
	Prediction float64
}

// Pipeline represents the single pass strategy evaluation pipeline.
type Pipeline struct {
	cfg    *Config
	logger *zerolog.Logger
}

// New initializes a new pipeline.
func New(cfg *Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating pipeline config: %w", err)
	}

	if cfg.MinRows < 2 {
		cfg.MinRows = 2
	}
	if cfg.TrainRatio == 0 {
		cfg.TrainRatio = regression.DefaultTrainRatio
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Frequency.Intraday() && cfg.PeriodsPerYear == evaluate.TradingDaysPerYear {
		cfg.Logger.Warn().Msgf("annualizing %s bars with %d periods per year, sharpe ratios will "+
			"be understated", cfg.Frequency, evaluate.TradingDaysPerYear)
	}

	return &Pipeline{cfg: cfg, logger: cfg.Logger}, nil
}

// window returns the inclusive bounds of the configured range. Bounds are the
// calendar days of Start and End taken in the pipeline location, the end covers
// its whole day. Zero bounds are open.
func (p *Pipeline) window() (time.Time, time.Time) {
	loc := p.cfg.Location

	var start, end time.Time
	if !p.cfg.Start.IsZero() {
		y, m, d := p.cfg.Start.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	if !p.cfg.End.IsZero() {
		y, m, d := p.cfg.End.Date()
		end = time.Date(y, m, d+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	}

	return start, end
}

// Collect fetches and normalizes the series of the provided symbol, clipped to the
// configured range.
func (p *Pipeline) Collect(ctx context.Context, symbol string) (*shared.Series, string, error) {
	start, end := p.window()
	fetchEnd := end
	if fetchEnd.IsZero() {
		fetchEnd = p.cfg.Now().In(p.cfg.Location)
	}

	res, err := p.cfg.Fetcher.Fetch(ctx, symbol, start, fetchEnd)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", symbol, err)
	}

	series, err := normalize.Normalize(res.Table, &normalize.Config{
		Symbol:    symbol,
		Frequency: res.Attempt.Frequency,
		Location:  p.cfg.Location,
	})
	if err != nil {
		return nil, "", fmt.Errorf("normalizing %s: %w", symbol, err)
	}

	if res.Attempt.Frequency != p.cfg.Frequency {
		p.logger.Warn().Str("symbol", symbol).Msgf("requested %s bars, evaluating %s bars",
			p.cfg.Frequency, res.Attempt.Frequency)
	}

	clipped := series.Between(start, end)
	if clipped.Len() == 0 {
		return nil, "", &shared.InsufficientDataError{Have: 0, Need: p.cfg.MinRows}
	}

	return clipped, res.Attempt.String(), nil
}

// Run executes every pipeline stage for the provided symbol.
func (p *Pipeline) Run(ctx context.Context, symbol string) (*Result, error) {
	series, source, err := p.Collect(ctx, symbol)
	if err != nil {
		return nil, err
	}

	res, err := p.Analyze(series)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", symbol, err)
	}
	res.Source = source

	p.logger.Info().Str("symbol", symbol).Str("run", res.RunID.String()).
		Msgf("strategy return %.4f, benchmark return %.4f, next bar: %s",
			res.Strategy.TotalReturn, res.Benchmark.TotalReturn, res.Next.Action())

	return res, nil
}

// Analyze runs the indicator, signal, backtest and evaluation stages over a
// normalized series.
func (p *Pipeline) Analyze(series *shared.Series) (*Result, error) {
	plan, err := p.cfg.Preset.Plan(series.MinInterval(), p.cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", p.cfg.Preset, err)
	}

	frame, err := indicator.Build(series, plan.Specs, p.cfg.MinRows)
	if err != nil {
		return nil, fmt.Errorf("computing indicators: %w", err)
	}

	res := &Result{
		RunID:      uuid.New(),
		Symbol:     series.Symbol,
		Series:     series,
		Prediction: math.NaN(),
	}

	if len(plan.Features) > 0 {
		frame, err = p.predict(frame, plan.Features, res)
		if err != nil {
			return nil, err
		}
	}

	signal, err := strategy.Generate(frame, &plan.Rule)
	if err != nil {
		return nil, fmt.Errorf("generating signal: %w", err)
	}

	returns, err := backtest.Run(frame.Bars, signal.Applied)
	if err != nil {
		return nil, fmt.Errorf("backtesting: %w", err)
	}

	res.Frame = frame
	res.Signal = signal
	res.Returns = returns
	res.NextAt, res.Next, _ = signal.Latest()

	res.Strategy, err = evaluate.Evaluate(returns.Strategy, p.cfg.PeriodsPerYear)
	if err != nil {
		return nil, fmt.Errorf("evaluating strategy: %w", err)
	}
	res.Benchmark, err = evaluate.Evaluate(returns.Benchmark, p.cfg.PeriodsPerYear)
	if err != nil {
		return nil, fmt.Errorf("evaluating benchmark: %w", err)
	}

	for _, summary := range []*evaluate.Summary{res.Strategy, res.Benchmark} {
		if summary.Undefined != nil {
			p.logger.Warn().Str("symbol", series.Symbol).Err(summary.Undefined).Msg("degenerate returns")
			if e := p.logger.Debug(); e.Enabled() {
				e.Msg(spew.Sdump(summary))
			}
		}
	}

	return res, nil
}

// predict fits the price model, annotates the frame with its predictions and
// returns the test segment the strategy is evaluated on.
func (p *Pipeline) predict(frame *indicator.Frame, features []string, res *Result) (*indicator.Frame, error) {
	model, err := regression.Fit(frame, features, p.cfg.TrainRatio)
	if err != nil {
		return nil, fmt.Errorf("fitting price model: %w", err)
	}

	annotated, err := model.Annotate(frame)
	if err != nil {
		return nil, fmt.Errorf("annotating predictions: %w", err)
	}

	if annotated.Len()-model.Split < p.cfg.MinRows {
		return nil, &shared.InsufficientDataError{Have: annotated.Len() - model.Split, Need: p.cfg.MinRows}
	}

	test, err := annotated.Slice(model.Split, annotated.Len())
	if err != nil {
		return nil, fmt.Errorf("slicing test segment: %w", err)
	}

	preds, _ := test.Column(regression.PredictedColumn)
	res.Model = model
	res.Prediction = preds[len(preds)-1]

	p.logger.Info().Str("symbol", frame.Symbol).Msgf("%s, train r2 %.4f, test r2 %.4f",
		model.String(), model.TrainR2, model.TestR2)

	return test, nil
}

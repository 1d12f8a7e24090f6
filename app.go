package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dnldd/etfsignal/chart"
	"github.com/dnldd/etfsignal/fetch"
	"github.com/dnldd/etfsignal/pipeline"
	"github.com/dnldd/etfsignal/report"
	"github.com/dnldd/etfsignal/shared"
	"github.com/dnldd/etfsignal/strategy"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// fundLister defines the requirements for listing exchange listed funds.
type fundLister interface {
	// ListFunds retrieves every exchange listed fund.
	ListFunds(ctx context.Context) ([]fetch.Fund, error)
}

// app wires the configured data sources into the pipeline.
type app struct {
	cfg      *Config
	pipeline *pipeline.Pipeline
	lister   fundLister
	out      io.Writer
	logger   *zerolog.Logger
}

// httpConfig returns the provider transport settings of the config.
func httpConfig(cfg *Config) fetch.HTTPConfig {
	return fetch.HTTPConfig{
		Proxy:   cfg.Proxy,
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}
}

// newSources creates the configured data providers in order.
func newSources(cfg *Config, logger *zerolog.Logger) ([]fetch.MarketFetcher, error) {
	httpCfg := httpConfig(cfg)
	adjust, err := adjustCode(cfg.Adjust)
	if err != nil {
		return nil, err
	}

	sources := make([]fetch.MarketFetcher, 0, len(cfg.Providers))
	for _, provider := range cfg.Providers {
		var src fetch.MarketFetcher
		var err error

		switch provider {
		case providerEastMoney:
			src, err = fetch.NewEastMoneyClient(&fetch.EastMoneyConfig{HTTPConfig: httpCfg, Adjust: adjust})
		case providerYahoo:
			src, err = fetch.NewYahooClient(&fetch.YahooConfig{HTTPConfig: httpCfg})
		case providerPolygon:
			src, err = fetch.NewPolygonClient(&fetch.PolygonConfig{HTTPConfig: httpCfg, APIKey: cfg.PolygonAPIKey})
		case providerFile:
			fileLogger := logger.With().Str("component", "historicdata").Logger()
			src, err = fetch.NewHistoricData(&fetch.HistoricDataConfig{FilePath: cfg.DataFilePath, Logger: &fileLogger})
		default:
			err = fmt.Errorf("unknown data provider %q", provider)
		}
		if err != nil {
			return nil, fmt.Errorf("creating %s source: %w", provider, err)
		}

		sources = append(sources, src)
	}

	return sources, nil
}

// newApp initializes the pipeline described by the provided config.
func newApp(cfg *Config, out io.Writer, logger *zerolog.Logger) (*app, error) {
	frequency, err := shared.ParseFrequency(cfg.Frequency)
	if err != nil {
		return nil, err
	}

	preset := strategy.DefaultPreset(frequency)
	if cfg.Strategy != "" {
		preset, err = strategy.ParsePreset(cfg.Strategy)
		if err != nil {
			return nil, err
		}
	}

	_, loc, err := shared.ShanghaiTime()
	if err != nil {
		return nil, err
	}

	// An empty end stays open, every run fetches up to its own current time.
	start, err := parseDate(cfg.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing start date: %w", err)
	}
	end, err := parseDate(cfg.End, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing end date: %w", err)
	}

	sources, err := newSources(cfg, logger)
	if err != nil {
		return nil, err
	}

	fetchLogger := logger.With().Str("component", "fetchmanager").Logger()
	mgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Attempts: fetch.DefaultAttempts(sources, frequency),
		Logger:   &fetchLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	pipelineLogger := logger.With().Str("component", "pipeline").Logger()
	p, err := pipeline.New(&pipeline.Config{
		Fetcher:   mgr,
		Start:     start,
		End:       end,
		Frequency: frequency,
		Preset:    preset,
		Params: strategy.Params{
			Window:     cfg.Window,
			FastWindow: cfg.FastWindow,
			SlowWindow: cfg.SlowWindow,
		},
		PeriodsPerYear: float64(cfg.PeriodsPerYear),
		MinRows:        cfg.MinRows,
		Location:       loc,
		Logger:         &pipelineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	a := &app{cfg: cfg, pipeline: p, out: out, logger: logger}
	if cfg.listsAll() {
		a.lister, err = fetch.NewEastMoneyClient(&fetch.EastMoneyConfig{HTTPConfig: httpConfig(cfg)})
		if err != nil {
			return nil, fmt.Errorf("creating fund lister: %w", err)
		}
	}

	return a, nil
}

// symbols returns the symbols of a run, listing every exchange listed fund when
// configured to.
func (a *app) symbols(ctx context.Context) ([]string, error) {
	if a.lister == nil {
		return a.cfg.Symbols, nil
	}

	funds, err := a.lister.ListFunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing funds: %w", err)
	}

	symbols := make([]string, len(funds))
	for idx := range funds {
		symbols[idx] = funds[idx].Code
	}

	a.logger.Info().Msgf("listed %d exchange listed funds", len(symbols))

	return symbols, nil
}

// run executes one pass over the configured symbols.
func (a *app) run(ctx context.Context) error {
	symbols, err := a.symbols(ctx)
	if err != nil {
		return err
	}

	if a.cfg.Collect {
		series, failures, err := a.pipeline.CollectBatch(ctx, symbols, a.cfg.Workers)
		if err != nil {
			return fmt.Errorf("collecting data: %w", err)
		}
		for symbol, ferr := range failures {
			a.logger.Error().Str("symbol", symbol).Err(ferr).Msg("collect failed")
		}
		if a.cfg.OutputCSV == "" {
			return pipeline.WriteCSV(a.out, series)
		}

		return pipeline.WriteCSVFile(a.cfg.OutputCSV, series)
	}

	batch, err := a.pipeline.RunBatch(ctx, symbols, a.cfg.Workers)
	if err != nil {
		return fmt.Errorf("running batch: %w", err)
	}

	if err = report.Write(a.out, batch); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if a.cfg.OutputCSV != "" {
		series := make([]*shared.Series, 0, len(batch.Results))
		for _, res := range batch.Results {
			series = append(series, res.Series)
		}
		if err := pipeline.WriteCSVFile(a.cfg.OutputCSV, series); err != nil {
			return err
		}
	}

	if a.cfg.ChartPath != "" && len(batch.Results) > 0 {
		if err := chart.RenderEquityFile(a.cfg.ChartPath, batch.Results); err != nil {
			return err
		}
	}

	return nil
}

// schedule runs the pipeline daily at the configured time until the context is cancelled.
func (a *app) schedule(ctx context.Context) error {
	_, loc, err := shared.ShanghaiTime()
	if err != nil {
		return err
	}

	scheduler := gocron.NewScheduler(loc)
	scheduler.SingletonModeAll()

	_, err = scheduler.Every(1).Day().At(a.cfg.Schedule).Do(a.scheduledRun, ctx)
	if err != nil {
		return fmt.Errorf("scheduling daily run: %w", err)
	}

	a.logger.Info().Msgf("scheduled daily run at %s %s", a.cfg.Schedule, loc.String())

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	return nil
}

// scheduledRun executes one scheduled pass, failures are logged and retried on the
// next schedule.
func (a *app) scheduledRun(ctx context.Context) {
	if err := a.run(ctx); err != nil {
		a.logger.Error().Err(err).Msg("scheduled run failed")
	}
}

package pipeline

import (
	"context"
	"sync"

	"github.com/dnldd/etfsignal/shared"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Batch represents the outcome of running the pipeline over several symbols.
type Batch struct {
	// Results holds the successful runs in symbol order.
	Results []*Result
	// Failures maps each failed symbol to its error.
	Failures  map[string]error
	Succeeded int64
	Failed    int64
}

// forEach runs fn for every symbol with at most workers concurrent calls. Failures
// are recorded per symbol and never abort the batch.
func (p *Pipeline) forEach(ctx context.Context, symbols []string, workers int, fn func(ctx context.Context, idx int, symbol string) error) (map[string]error, int64, int64, error) {
	if workers < 1 {
		workers = 1
	}

	var mtx sync.Mutex
	failures := make(map[string]error)
	succeeded := atomic.NewInt64(0)
	failed := atomic.NewInt64(0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for idx, symbol := range symbols {
		idx, symbol := idx, symbol
		g.Go(func() error {
			err := fn(gctx, idx, symbol)
			if err != nil {
				p.logger.Error().Str("symbol", symbol).Err(err).Msg("pipeline run failed")
				failed.Inc()
				mtx.Lock()
				failures[symbol] = err
				mtx.Unlock()
				return nil
			}

			succeeded.Inc()
			return nil
		})
	}

	_ = g.Wait()

	p.logger.Info().Msgf("batch done: %d succeeded, %d failed", succeeded.Load(), failed.Load())

	return failures, succeeded.Load(), failed.Load(), ctx.Err()
}

// RunBatch runs the pipeline for every symbol independently. It returns the
// successful results along with the failures, the error is only set when the
// context is cancelled.
func (p *Pipeline) RunBatch(ctx context.Context, symbols []string, workers int) (*Batch, error) {
	results := make([]*Result, len(symbols))
	failures, succeeded, failed, err := p.forEach(ctx, symbols, workers,
		func(ctx context.Context, idx int, symbol string) error {
			res, err := p.Run(ctx, symbol)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})

	batch := &Batch{
		Results:   make([]*Result, 0, succeeded),
		Failures:  failures,
		Succeeded: succeeded,
		Failed:    failed,
	}
	for _, res := range results {
		if res != nil {
			batch.Results = append(batch.Results, res)
		}
	}

	return batch, err
}

// CollectBatch fetches and normalizes every symbol independently without running
// the strategy stages.
func (p *Pipeline) CollectBatch(ctx context.Context, symbols []string, workers int) ([]*shared.Series, map[string]error, error) {
	collected := make([]*shared.Series, len(symbols))
	failures, _, _, err := p.forEach(ctx, symbols, workers,
		func(ctx context.Context, idx int, symbol string) error {
			series, _, err := p.Collect(ctx, symbol)
			if err != nil {
				return err
			}
			collected[idx] = series
			return nil
		})

	series := make([]*shared.Series, 0, len(symbols))
	for _, s := range collected {
		if s != nil {
			series = append(series, s)
		}
	}

	return series, failures, err
}

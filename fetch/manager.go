package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/etfsignal/shared"
	"github.com/rs/zerolog"
)

// Attempt represents one step of the data source fallback chain.
type Attempt struct {
	Source    MarketFetcher
	Frequency shared.Frequency
	Unbounded bool
}

// String stringifies the provided attempt.
func (a Attempt) String() string {
	scope := "ranged"
	if a.Unbounded {
		scope = "unbounded"
	}

	return fmt.Sprintf("%s/%s/%s", a.Source.Name(), a.Frequency, scope)
}

// DefaultAttempts returns the fallback chain for the provided sources: every source
// with the requested range, every source unbounded, then every source's daily bars
// when an intraday frequency was requested.
func DefaultAttempts(sources []MarketFetcher, frequency shared.Frequency) []Attempt {
	attempts := make([]Attempt, 0, len(sources)*3)
	for _, src := range sources {
		attempts = append(attempts, Attempt{Source: src, Frequency: frequency})
	}
	for _, src := range sources {
		attempts = append(attempts, Attempt{Source: src, Frequency: frequency, Unbounded: true})
	}
	if frequency.Intraday() {
		for _, src := range sources {
			attempts = append(attempts, Attempt{Source: src, Frequency: shared.Daily})
		}
	}

	return attempts
}

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Attempts is the ordered data source fallback chain.
	Attempts []Attempt
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Attempts) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no fetch attempts provided"))
	}
	for idx := range cfg.Attempts {
		if cfg.Attempts[idx].Source == nil {
			errs = errors.Join(errs, fmt.Errorf("attempt %d source cannot be nil", idx))
		}
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Result represents fetched market data along with the attempt that produced it.
type Result struct {
	Table   *shared.RawTable
	Attempt Attempt
}

// Manager represents the market data fetch manager.
type Manager struct {
	cfg *ManagerConfig
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating manager config: %w", err)
	}

	return &Manager{cfg: cfg}, nil
}

// Fetch walks the fallback chain and returns the first non-empty table for the
// symbol. Every failed attempt is logged and reported if the chain is exhausted.
func (m *Manager) Fetch(ctx context.Context, symbol string, start time.Time, end time.Time) (*Result, error) {
	attemptErrs := make([]error, 0, len(m.cfg.Attempts))

	for idx := range m.cfg.Attempts {
		attempt := m.cfg.Attempts[idx]

		if err := ctx.Err(); err != nil {
			attemptErrs = append(attemptErrs, err)
			break
		}

		req := &Request{
			Symbol:    symbol,
			Start:     start,
			End:       end,
			Frequency: attempt.Frequency,
			Unbounded: attempt.Unbounded,
		}

		table, err := attempt.Source.Fetch(ctx, req)
		if err == nil && table.Len() == 0 {
			err = fmt.Errorf("no rows returned")
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", attempt.String(), err)
			m.cfg.Logger.Warn().Err(err).Str("symbol", symbol).Msg("fetch attempt failed")
			attemptErrs = append(attemptErrs, err)
			continue
		}

		m.cfg.Logger.Info().Str("symbol", symbol).Msgf("fetched %d rows via %s", table.Len(), attempt.String())

		return &Result{Table: table, Attempt: attempt}, nil
	}

	return nil, &shared.DataUnavailableError{Symbol: symbol, Attempts: attemptErrs}
}

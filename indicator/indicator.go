package indicator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dnldd/etfsignal/shared"
	"github.com/markcheno/go-talib"
)

// Kind represents an indicator computation.
type Kind int

const (
	// RollingMean is the arithmetic mean of close over the trailing window, current bar inclusive.
	RollingMean Kind = iota
	// Momentum is the windowed return close[t]/close[t-window] - 1.
	Momentum
	// MomentumSum is the sum of the trailing window's bar to bar pct-changes.
	MomentumSum
	// PctChange is (close[t] - close[t-periods]) / close[t-periods].
	PctChange
)

// String stringifies the provided indicator kind.
func (k Kind) String() string {
	switch k {
	case RollingMean:
		return "rolling_mean"
	case Momentum:
		return "momentum"
	case MomentumSum:
		return "momentum_sum"
	case PctChange:
		return "pct_change"
	default:
		return "unknown"
	}
}

// ParseKind parses the provided indicator kind string.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rolling_mean", "ma", "sma":
		return RollingMean, nil
	case "momentum":
		return Momentum, nil
	case "momentum_sum":
		return MomentumSum, nil
	case "pct_change":
		return PctChange, nil
	default:
		return RollingMean, fmt.Errorf("unknown indicator kind: %s", s)
	}
}

// Warmup returns the number of leading bars the indicator is undefined for.
func (k Kind) Warmup(window int) int {
	switch k {
	case RollingMean:
		return window - 1
	default:
		return window
	}
}

// Spec describes a derived column to compute.
type Spec struct {
	Name   string
	Kind   Kind
	Window int
}

// Validate asserts the spec sane inputs.
func (s *Spec) Validate() error {
	var errs error

	if s.Name == "" {
		errs = errors.Join(errs, fmt.Errorf("indicator name cannot be an empty string"))
	}
	if s.Window < 1 {
		errs = errors.Join(errs, fmt.Errorf("indicator %s window must be positive, got %d", s.Name, s.Window))
	}
	if s.Kind.String() == "unknown" {
		errs = errors.Join(errs, fmt.Errorf("indicator %s has an unknown kind", s.Name))
	}

	return errs
}

// undefined returns a slice of n NaN values.
func undefined(n int) []float64 {
	values := make([]float64, n)
	for idx := range values {
		values[idx] = math.NaN()
	}

	return values
}

// compute evaluates the provided spec over the close prices. Warm-up rows are NaN.
func compute(closes []float64, spec Spec) []float64 {
	out := undefined(len(closes))
	window := spec.Window

	switch spec.Kind {
	case RollingMean:
		if len(closes) < window {
			return out
		}
		sma := talib.Sma(closes, window)
		copy(out[window-1:], sma[window-1:])

	case Momentum, PctChange:
		if len(closes) <= window {
			return out
		}
		rocp := talib.Rocp(closes, window)
		copy(out[window:], rocp[window:])

	case MomentumSum:
		if len(closes) <= window {
			return out
		}
		// The first pct-change is undefined, sum the defined ones.
		changes := talib.Rocp(closes, 1)[1:]
		sums := talib.Sum(changes, window)
		copy(out[window:], sums[window-1:])
	}

	return out
}

// Compute evaluates the provided specs in order over the series. The returned frame
// is not trimmed.
func Compute(series *shared.Series, specs []Spec) (*Frame, error) {
	if series == nil {
		return nil, fmt.Errorf("series cannot be nil")
	}

	frame := newFrame(series.Symbol, series.Frequency, series.Bars)
	closes := series.Closes()

	for idx := range specs {
		spec := specs[idx]
		err := spec.Validate()
		if err != nil {
			return nil, fmt.Errorf("validating indicator spec: %w", err)
		}

		frame, err = frame.WithColumn(spec.Name, compute(closes, spec), spec.Kind.Warmup(spec.Window))
		if err != nil {
			return nil, fmt.Errorf("adding indicator %s: %w", spec.Name, err)
		}
	}

	return frame, nil
}

// Build computes the provided specs and drops the warm-up rows. It fails with an
// insufficient data error when fewer than minRows rows remain.
func Build(series *shared.Series, specs []Spec, minRows int) (*Frame, error) {
	frame, err := Compute(series, specs)
	if err != nil {
		return nil, err
	}

	need := max(minRows, 2)
	trimmed := frame.Trim()
	if trimmed.Len() < need {
		return nil, &shared.InsufficientDataError{Have: trimmed.Len(), Need: need}
	}

	return trimmed, nil
}

package strategy

import (
	"fmt"
	"time"

	"github.com/dnldd/etfsignal/indicator"
	"github.com/dnldd/etfsignal/shared"
)

// Signal represents the positions decided over a frame. Raw[t] is decided with the
// information available at bar t, Applied[t] is the position held over the return
// realized from bar t-1 to bar t.
type Signal struct {
	Timestamps []time.Time
	Raw        []shared.Position
	Applied    []shared.Position
	Lag        int
}

// Generate evaluates the rule over the frame and lags the decisions so no bar's
// return is traded on information it produced.
func Generate(frame *indicator.Frame, rule *Rule) (*Signal, error) {
	if frame == nil || rule == nil {
		return nil, fmt.Errorf("frame and rule cannot be nil")
	}

	err := rule.Validate(frame)
	if err != nil {
		return nil, fmt.Errorf("validating rule: %w", err)
	}

	raw := rule.evaluate(frame)

	signal := &Signal{
		Timestamps: frame.Series().Timestamps(),
		Raw:        raw,
		Applied:    Shift(raw, rule.Lag),
		Lag:        rule.Lag,
	}

	return signal, nil
}

// Shift lags the provided positions by n bars, the leading n positions are flat.
func Shift(positions []shared.Position, n int) []shared.Position {
	shifted := make([]shared.Position, len(positions))
	for t := n; t < len(positions); t++ {
		shifted[t] = positions[t-n]
	}

	return shifted
}

// Weights returns the applied positions as return multipliers.
func (s *Signal) Weights() []float64 {
	weights := make([]float64, len(s.Applied))
	for idx := range s.Applied {
		weights[idx] = float64(s.Applied[idx])
	}

	return weights
}

// Latest returns the most recent decision, the position to hold over the next bar.
func (s *Signal) Latest() (time.Time, shared.Position, bool) {
	if len(s.Raw) == 0 {
		return time.Time{}, shared.Flat, false
	}

	last := len(s.Raw) - 1
	return s.Timestamps[last], s.Raw[last], true
}

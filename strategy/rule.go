package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/etfsignal/indicator"
	"github.com/dnldd/etfsignal/shared"
)

// RuleKind represents a family of signal rules.
type RuleKind int

const (
	// Crossover compares two indicator columns, or one column against its previous value.
	Crossover RuleKind = iota
	// Threshold compares one indicator column against a fixed level.
	Threshold
)

// String stringifies the provided rule kind.
func (k RuleKind) String() string {
	switch k {
	case Crossover:
		return "crossover"
	case Threshold:
		return "threshold"
	default:
		return "unknown"
	}
}

// Rule maps indicator values to positions.
type Rule struct {
	// Kind is the rule family.
	Kind RuleKind
	// A is the primary indicator column.
	A string
	// B is the column A is compared against for crossover rules.
	B string
	// Previous compares A[t-1] < A[t] instead of A[t] > B[t] for crossover rules.
	Previous bool
	// Threshold is the level A is compared against for threshold rules.
	Threshold float64
	// Short takes a short position instead of staying flat when the rule does not hold.
	Short bool
	// Lag is the number of bars between a decision and the return it applies to.
	Lag int
}

// Validate asserts the rule sane inputs against the provided frame.
func (r *Rule) Validate(frame *indicator.Frame) error {
	var errs error

	if r.A == "" {
		errs = errors.Join(errs, fmt.Errorf("rule column cannot be an empty string"))
	} else if _, ok := frame.Column(r.A); !ok {
		errs = errors.Join(errs, fmt.Errorf("unknown rule column %s", r.A))
	}

	switch r.Kind {
	case Crossover:
		if !r.Previous {
			if r.B == "" {
				errs = errors.Join(errs, fmt.Errorf("crossover rule needs a second column"))
			} else if _, ok := frame.Column(r.B); !ok {
				errs = errors.Join(errs, fmt.Errorf("unknown rule column %s", r.B))
			}
		}
	case Threshold:
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown rule kind %d", r.Kind))
	}

	if r.Lag < 1 {
		errs = errors.Join(errs, fmt.Errorf("rule lag must be at least one bar, got %d", r.Lag))
	}

	return errs
}

// otherwise returns the position taken when the rule does not hold.
func (r *Rule) otherwise() shared.Position {
	if r.Short {
		return shared.Short
	}

	return shared.Flat
}

// decide evaluates the rule condition. Undefined comparator values are flat.
func (r *Rule) decide(cond bool, values ...float64) shared.Position {
	for _, v := range values {
		if math.IsNaN(v) {
			return shared.Flat
		}
	}

	if cond {
		return shared.Long
	}

	return r.otherwise()
}

// evaluate computes the raw, unlagged positions of the rule over the frame.
func (r *Rule) evaluate(frame *indicator.Frame) []shared.Position {
	a, _ := frame.Column(r.A)
	raw := make([]shared.Position, frame.Len())

	switch {
	case r.Kind == Threshold:
		for t := range raw {
			raw[t] = r.decide(a[t] > r.Threshold, a[t])
		}

	case r.Previous:
		for t := 1; t < len(raw); t++ {
			raw[t] = r.decide(a[t-1] < a[t], a[t-1], a[t])
		}

	default:
		b, _ := frame.Column(r.B)
		for t := range raw {
			raw[t] = r.decide(a[t] > b[t], a[t], b[t])
		}
	}

	return raw
}

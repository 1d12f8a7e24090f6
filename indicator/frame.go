package indicator

import (
	"fmt"
	"math"
	"slices"

	"github.com/dnldd/etfsignal/shared"
)

// Frame represents a canonical series extended with named derived columns.
// Undefined values are NaN. Frames are never mutated once created, every
// transformation returns a new frame.
type Frame struct {
	Symbol    string
	Frequency shared.Frequency
	Bars      []shared.Bar

	names   []string
	columns map[string][]float64
	warmups map[string]int
}

// newFrame initializes an empty frame over the provided bars.
func newFrame(symbol string, frequency shared.Frequency, bars []shared.Bar) *Frame {
	return &Frame{
		Symbol:    symbol,
		Frequency: frequency,
		Bars:      bars,
		names:     make([]string, 0),
		columns:   make(map[string][]float64),
		warmups:   make(map[string]int),
	}
}

// clone returns a copy of the frame sharing no mutable state with it.
func (f *Frame) clone() *Frame {
	frame := newFrame(f.Symbol, f.Frequency, slices.Clone(f.Bars))
	frame.names = slices.Clone(f.names)
	for name, values := range f.columns {
		frame.columns[name] = slices.Clone(values)
		frame.warmups[name] = f.warmups[name]
	}

	return frame
}

// Len returns the number of rows in the frame.
func (f *Frame) Len() int {
	return len(f.Bars)
}

// Names returns the derived column names in insertion order.
func (f *Frame) Names() []string {
	return slices.Clone(f.names)
}

// Column returns a copy of the named derived column.
func (f *Frame) Column(name string) ([]float64, bool) {
	values, ok := f.columns[name]
	if !ok {
		return nil, false
	}

	return slices.Clone(values), true
}

// Warmup returns the number of leading undefined rows of the named column.
func (f *Frame) Warmup(name string) int {
	return f.warmups[name]
}

// Closes returns a copy of the close prices of the frame.
func (f *Frame) Closes() []float64 {
	closes := make([]float64, len(f.Bars))
	for idx := range f.Bars {
		closes[idx] = f.Bars[idx].Close
	}

	return closes
}

// Series returns the bars of the frame as a canonical series.
func (f *Frame) Series() *shared.Series {
	return &shared.Series{
		Symbol:    f.Symbol,
		Frequency: f.Frequency,
		Bars:      slices.Clone(f.Bars),
	}
}

// WithColumn returns a new frame with the provided column added.
func (f *Frame) WithColumn(name string, values []float64, warmup int) (*Frame, error) {
	if name == "" {
		return nil, fmt.Errorf("column name cannot be an empty string")
	}
	if _, ok := f.columns[name]; ok {
		return nil, fmt.Errorf("column %s already exists", name)
	}
	if len(values) != len(f.Bars) {
		return nil, fmt.Errorf("column %s has %d values, expected %d", name, len(values), len(f.Bars))
	}

	frame := f.clone()
	frame.names = append(frame.names, name)
	frame.columns[name] = slices.Clone(values)
	frame.warmups[name] = warmup

	return frame, nil
}

// Slice returns a new frame holding the rows in [from, to).
func (f *Frame) Slice(from int, to int) (*Frame, error) {
	if from < 0 || to > len(f.Bars) || from > to {
		return nil, fmt.Errorf("invalid frame slice [%d:%d] of %d rows", from, to, len(f.Bars))
	}

	frame := newFrame(f.Symbol, f.Frequency, slices.Clone(f.Bars[from:to]))
	frame.names = slices.Clone(f.names)
	for name, values := range f.columns {
		frame.columns[name] = slices.Clone(values[from:to])
		frame.warmups[name] = max(f.warmups[name]-from, 0)
	}

	return frame, nil
}

// Trim returns a new frame without the rows where any derived column is undefined.
func (f *Frame) Trim() *Frame {
	keep := make([]int, 0, len(f.Bars))
	for idx := range f.Bars {
		defined := true
		for _, name := range f.names {
			if math.IsNaN(f.columns[name][idx]) {
				defined = false
				break
			}
		}
		if defined {
			keep = append(keep, idx)
		}
	}

	frame := newFrame(f.Symbol, f.Frequency, make([]shared.Bar, 0, len(keep)))
	frame.names = slices.Clone(f.names)
	for _, name := range f.names {
		frame.columns[name] = make([]float64, 0, len(keep))
		frame.warmups[name] = 0
	}

	for _, idx := range keep {
		frame.Bars = append(frame.Bars, f.Bars[idx])
		for _, name := range f.names {
			frame.columns[name] = append(frame.columns[name], f.columns[name][idx])
		}
	}

	return frame
}

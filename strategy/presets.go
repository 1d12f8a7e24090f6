package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/dnldd/etfsignal/indicator"
	"github.com/dnldd/etfsignal/shared"
)

const (
	// DefaultMomentumWindow is the daily momentum lookback.
	DefaultMomentumWindow = 20
	// DefaultFastWindow is the fast rolling mean window of the crossover preset.
	DefaultFastWindow = 5
	// DefaultSlowWindow is the slow rolling mean window of the crossover preset.
	DefaultSlowWindow = 20
	// DefaultPredictorFastWindow is the fast rolling mean feature of the predictor preset.
	DefaultPredictorFastWindow = 55
	// DefaultPredictorSlowWindow is the slow rolling mean feature of the predictor preset.
	DefaultPredictorSlowWindow = 60
	// PredictedColumn is the column the predictor preset trades on.
	PredictedColumn = "predicted"

	// intraday momentum lookbacks, picked by bar spacing.
	fineIntradayWindow   = 30
	coarseIntradayWindow = 10
	fineIntradayInterval = 15 * time.Minute
)

// Preset represents a named strategy configuration.
type Preset int

const (
	DailyMomentum Preset = iota
	IntradayMomentum
	MACrossover
	PredictedPrice
)

// String stringifies the provided preset.
func (p Preset) String() string {
	switch p {
	case DailyMomentum:
		return "daily-momentum"
	case IntradayMomentum:
		return "intraday-momentum"
	case MACrossover:
		return "ma-crossover"
	case PredictedPrice:
		return "predicted-price"
	default:
		return "unknown"
	}
}

// ParsePreset parses the provided preset name.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily-momentum":
		return DailyMomentum, nil
	case "intraday-momentum":
		return IntradayMomentum, nil
	case "ma-crossover":
		return MACrossover, nil
	case "predicted-price":
		return PredictedPrice, nil
	default:
		return DailyMomentum, fmt.Errorf("unknown strategy preset: %s", s)
	}
}

// Params holds the tunable windows of a preset. Zero values select the preset defaults.
type Params struct {
	Window     int
	FastWindow int
	SlowWindow int
	Lag        int
}

// Plan describes the indicators a preset needs and the rule it trades on.
type Plan struct {
	Preset Preset
	Specs  []indicator.Spec
	// Features lists the regression inputs, empty unless the preset predicts prices.
	Features []string
	Rule     Rule
}

// IntradayWindow returns the intraday momentum lookback for the provided bar spacing.
func IntradayWindow(interval time.Duration) int {
	if interval > 0 && interval <= fineIntradayInterval {
		return fineIntradayWindow
	}

	return coarseIntradayWindow
}

// orDefault returns v when set, def otherwise.
func orDefault(v int, def int) int {
	if v > 0 {
		return v
	}

	return def
}

// Plan builds the indicator specs and rule of the preset. The provided interval is
// the smallest spacing between consecutive bars of the series.
func (p Preset) Plan(interval time.Duration, params Params) (*Plan, error) {
	lag := orDefault(params.Lag, 1)
	plan := &Plan{Preset: p}

	switch p {
	case DailyMomentum:
		window := orDefault(params.Window, DefaultMomentumWindow)
		plan.Specs = []indicator.Spec{{Name: "momentum", Kind: indicator.Momentum, Window: window}}
		plan.Rule = Rule{Kind: Threshold, A: "momentum", Lag: lag}

	case IntradayMomentum:
		window := orDefault(params.Window, IntradayWindow(interval))
		plan.Specs = []indicator.Spec{{Name: "momentum", Kind: indicator.MomentumSum, Window: window}}
		plan.Rule = Rule{Kind: Threshold, A: "momentum", Short: true, Lag: lag}

	case MACrossover:
		fast := orDefault(params.FastWindow, DefaultFastWindow)
		slow := orDefault(params.SlowWindow, DefaultSlowWindow)
		if fast >= slow {
			return nil, fmt.Errorf("fast window (%d) must be shorter than slow window (%d)", fast, slow)
		}
		fastName, slowName := fmt.Sprintf("ma_%d", fast), fmt.Sprintf("ma_%d", slow)
		plan.Specs = []indicator.Spec{
			{Name: fastName, Kind: indicator.RollingMean, Window: fast},
			{Name: slowName, Kind: indicator.RollingMean, Window: slow},
		}
		plan.Rule = Rule{Kind: Crossover, A: fastName, B: slowName, Lag: lag}

	case PredictedPrice:
		fast := orDefault(params.FastWindow, DefaultPredictorFastWindow)
		slow := orDefault(params.SlowWindow, DefaultPredictorSlowWindow)
		if fast == slow {
			return nil, fmt.Errorf("predictor windows must differ, got %d", fast)
		}
		fastName, slowName := fmt.Sprintf("ma_%d", fast), fmt.Sprintf("ma_%d", slow)
		plan.Specs = []indicator.Spec{
			{Name: fastName, Kind: indicator.RollingMean, Window: fast},
			{Name: slowName, Kind: indicator.RollingMean, Window: slow},
		}
		plan.Features = []string{fastName, slowName}
		plan.Rule = Rule{Kind: Crossover, A: PredictedColumn, Previous: true, Lag: lag}

	default:
		return nil, fmt.Errorf("unknown strategy preset %d", p)
	}

	return plan, nil
}

// DefaultPreset returns the momentum preset matching the provided frequency.
func DefaultPreset(frequency shared.Frequency) Preset {
	if frequency.Intraday() {
		return IntradayMomentum
	}

	return DailyMomentum
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/etfsignal/evaluate"
	"github.com/dnldd/etfsignal/shared"
	"github.com/dnldd/etfsignal/strategy"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// scheduleLayout is the format layout of the daily run time.
	scheduleLayout = "15:04"
	// defaultTimeout is the default provider request timeout in seconds.
	defaultTimeout = 15
)

// allSymbols selects every exchange listed fund.
const allSymbols = "all"

// supported price adjustments.
const (
	adjustNone     = "none"
	adjustForward  = "qfq"
	adjustBackward = "hfq"
)

// supported data providers.
const (
	providerEastMoney = "eastmoney"
	providerYahoo     = "yahoo"
	providerPolygon   = "polygon"
	providerFile      = "file"
)

// Config is the configuration struct for the service.
type Config struct {
	// Symbols represents the evaluated fund or equity codes, all lists every
	// exchange listed fund.
	Symbols []string
	// Start and End bound the evaluated bars, formatted YYYYMMDD.
	Start string
	End   string
	// Frequency is the bar interval: daily, 5min, 15min, 30min or 60min.
	Frequency string
	// Providers is the ordered list of data providers tried per symbol.
	Providers []string
	// PolygonAPIKey is the Polygon API key.
	PolygonAPIKey string
	// Adjust is the eastmoney price adjustment: none, qfq (forward) or hfq (backward).
	Adjust string
	// Proxy is the proxy url provider requests are routed through.
	Proxy string
	// Timeout is the provider request timeout in seconds.
	Timeout int
	// Strategy is the strategy preset, picked from the frequency when empty.
	Strategy string
	// Window, FastWindow and SlowWindow tune the preset indicator windows.
	Window     int
	FastWindow int
	SlowWindow int
	// PeriodsPerYear annualizes sharpe ratios.
	PeriodsPerYear int
	// MinRows is the minimum number of usable bars after the indicator warm-up.
	MinRows int
	// Workers is the number of symbols processed concurrently.
	Workers int
	// DataFilePath is the filepath to a local csv or json data file.
	DataFilePath string
	// OutputCSV is the filepath the collected bars are written to.
	OutputCSV string
	// ChartPath is the filepath the equity curve chart is written to.
	ChartPath string
	// Schedule is the daily run time (HH:MM, Asia/Shanghai), a single run when empty.
	Schedule string
	// Collect only fetches and persists data, skipping the strategy stages.
	Collect bool
	// LogLevel is the minimum log level.
	LogLevel string

	registeredFlags map[string]bool
}

// applyDefaults fills unset fields with their defaults.
func (cfg *Config) applyDefaults() {
	if cfg.Frequency == "" {
		cfg.Frequency = shared.Daily.String()
	}
	if len(cfg.Providers) == 0 {
		if cfg.DataFilePath != "" {
			cfg.Providers = []string{providerFile}
		} else {
			cfg.Providers = []string{providerEastMoney, providerYahoo}
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PeriodsPerYear == 0 {
		cfg.PeriodsPerYear = evaluate.TradingDaysPerYear
	}
	if cfg.MinRows == 0 {
		cfg.MinRows = 2
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = zerolog.InfoLevel.String()
	}
}

// parseDate parses a YYYYMMDD date at midnight in the provided location, empty
// strings are the zero time.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.ParseInLocation(shared.CompactDateLayout, s, loc)
}

// adjustCode returns the eastmoney adjustment code of the provided adjustment.
func adjustCode(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", adjustNone:
		return 0, nil
	case adjustForward:
		return 1, nil
	case adjustBackward:
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown price adjustment %q, expected none, qfq or hfq", s)
	}
}

// listsAll returns true if the symbols select every exchange listed fund.
func (cfg *Config) listsAll() bool {
	return len(cfg.Symbols) == 1 && strings.EqualFold(cfg.Symbols[0], allSymbols)
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided"))
	}

	start, err := parseDate(cfg.Start, time.UTC)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid start date %q, expected YYYYMMDD", cfg.Start))
	}
	end, err := parseDate(cfg.End, time.UTC)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid end date %q, expected YYYYMMDD", cfg.End))
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs = errors.Join(errs, fmt.Errorf("end date cannot be before start date"))
	}

	if _, err := shared.ParseFrequency(cfg.Frequency); err != nil {
		errs = errors.Join(errs, err)
	}

	for _, provider := range cfg.Providers {
		switch provider {
		case providerEastMoney, providerYahoo:
		case providerPolygon:
			if cfg.PolygonAPIKey == "" {
				errs = errors.Join(errs, fmt.Errorf("polygon api key cannot be an empty string"))
			}
		case providerFile:
			if cfg.DataFilePath == "" {
				errs = errors.Join(errs, fmt.Errorf("data filepath cannot be an empty string"))
			}
		default:
			errs = errors.Join(errs, fmt.Errorf("unknown data provider %q", provider))
		}
	}

	if _, err := adjustCode(cfg.Adjust); err != nil {
		errs = errors.Join(errs, err)
	}

	if cfg.Strategy != "" {
		if _, err := strategy.ParsePreset(cfg.Strategy); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if cfg.Timeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("timeout cannot be negative"))
	}
	if cfg.PeriodsPerYear < 0 {
		errs = errors.Join(errs, fmt.Errorf("periods per year cannot be negative"))
	}
	if cfg.Workers < 0 {
		errs = errors.Join(errs, fmt.Errorf("workers cannot be negative"))
	}
	if cfg.Schedule != "" {
		if _, err := time.Parse(scheduleLayout, cfg.Schedule); err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalid schedule %q, expected HH:MM", cfg.Schedule))
		}
	}
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalid log level %q", cfg.LogLevel))
		}
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = splitList(defValue)
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = splitList(s)
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// splitList splits a comma separated list, dropping blank entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}

	return list
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"symbols", &cfg.Symbols, "the evaluated fund or equity codes, all for every listed fund"},
		{"start", &cfg.Start, "the first evaluated date (YYYYMMDD)"},
		{"end", &cfg.End, "the last evaluated date (YYYYMMDD)"},
		{"frequency", &cfg.Frequency, "the bar interval (daily, 5min, 15min, 30min, 60min)"},
		{"providers", &cfg.Providers, "the ordered data providers (eastmoney, yahoo, polygon, file)"},
		{"polygonapikey", &cfg.PolygonAPIKey, "the polygon api key"},
		{"adjust", &cfg.Adjust, "the eastmoney price adjustment (none, qfq, hfq)"},
		{"proxy", &cfg.Proxy, "the proxy url for provider requests"},
		{"timeout", &cfg.Timeout, "the provider request timeout in seconds"},
		{"strategy", &cfg.Strategy, "the strategy preset"},
		{"window", &cfg.Window, "the momentum window"},
		{"fastwindow", &cfg.FastWindow, "the fast rolling mean window"},
		{"slowwindow", &cfg.SlowWindow, "the slow rolling mean window"},
		{"periodsperyear", &cfg.PeriodsPerYear, "the bars per year used to annualize sharpe ratios"},
		{"minrows", &cfg.MinRows, "the minimum usable bars after the indicator warm-up"},
		{"workers", &cfg.Workers, "the number of symbols processed concurrently"},
		{"datafilepath", &cfg.DataFilePath, "the local csv or json data filepath"},
		{"outputcsv", &cfg.OutputCSV, "the csv filepath collected bars are written to"},
		{"chartpath", &cfg.ChartPath, "the html filepath equity curves are written to"},
		{"schedule", &cfg.Schedule, "the daily run time (HH:MM, Asia/Shanghai)"},
		{"collect", &cfg.Collect, "only fetch and persist data"},
		{"loglevel", &cfg.LogLevel, "the minimum log level"},
	}

	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.applyDefaults()

	return cfg.Validate()
}

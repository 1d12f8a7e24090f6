package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dnldd/etfsignal/shared"
	"github.com/tidwall/gjson"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	yahooChartPath = "/v8/finance/chart/"
	// yahooIntradayRange is the longest history the chart api serves for intraday bars.
	yahooIntradayRange = "60d"
)

// yahooColumns lists the canonical columns of chart payload tables.
var yahooColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// YahooConfig represents the configuration for the Yahoo chart client.
type YahooConfig struct {
	HTTPConfig
}

// YahooClient represents the Yahoo finance chart API client.
type YahooClient struct {
	cfg   *YahooConfig
	httpc *http.Client
}

// Ensure the YahooClient implements the MarketFetcher interface.
var _ MarketFetcher = (*YahooClient)(nil)

// NewYahooClient instantiates a new Yahoo chart client.
func NewYahooClient(cfg *YahooConfig) (*YahooClient, error) {
	httpc, err := newHTTPClient(&cfg.HTTPConfig)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}

	return &YahooClient{cfg: cfg, httpc: httpc}, nil
}

// Name returns the data source name.
func (c *YahooClient) Name() string {
	return "yahoo"
}

// interval returns the chart interval of the provided frequency.
func interval(frequency shared.Frequency) (string, error) {
	switch frequency {
	case shared.Daily:
		return "1d", nil
	case shared.FiveMinute, shared.FifteenMinute, shared.ThirtyMinute, shared.SixtyMinute:
		return fmt.Sprintf("%dm", frequency.Minutes()), nil
	default:
		return "", fmt.Errorf("unknown frequency provided: %s", frequency.String())
	}
}

// formURL creates the full chart url including parameters for the request.
func (c *YahooClient) formURL(req *Request) (string, error) {
	iv, err := interval(req.Frequency)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Add("interval", iv)

	switch {
	case req.Unbounded && req.Frequency.Intraday():
		params.Add("range", yahooIntradayRange)
	case req.Unbounded:
		params.Add("range", "max")
	default:
		params.Add("period1", strconv.FormatInt(req.Start.Unix(), 10))
		// The end bound is exclusive, include the whole end day.
		params.Add("period2", strconv.FormatInt(req.End.AddDate(0, 0, 1).Unix(), 10))
	}

	return c.cfg.baseURL(yahooBaseURL) + yahooChartPath + url.PathEscape(req.Symbol) + "?" + params.Encode(), nil
}

// quoteValue stringifies a chart quote value, nulls become empty cells.
func quoteValue(values []gjson.Result, idx int) string {
	if idx >= len(values) || values[idx].Type == gjson.Null {
		return ""
	}

	return values[idx].Raw
}

// ParseChart parses the chart payload into a raw table.
func (c *YahooClient) ParseChart(body []byte) (*shared.RawTable, error) {
	chartErr := gjson.GetBytes(body, "chart.error")
	if chartErr.Exists() && chartErr.Type != gjson.Null {
		return nil, fmt.Errorf("chart error: %s", chartErr.Get("description").String())
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("no chart result in response")
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	open := quote.Get("open").Array()
	high := quote.Get("high").Array()
	low := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volume := quote.Get("volume").Array()

	table := shared.NewRawTable(yahooColumns...)
	for idx := range timestamps {
		table.Append(
			timestamps[idx].Raw,
			quoteValue(open, idx),
			quoteValue(high, idx),
			quoteValue(low, idx),
			quoteValue(closes, idx),
			quoteValue(volume, idx),
		)
	}

	return table, nil
}

// Fetch retrieves the chart bars of the requested symbol.
func (c *YahooClient) Fetch(ctx context.Context, req *Request) (*shared.RawTable, error) {
	target, err := c.formURL(req)
	if err != nil {
		return nil, err
	}

	body, err := get(ctx, c.httpc, target)
	if err != nil {
		return nil, fmt.Errorf("fetching chart for %s: %w", req.String(), err)
	}

	table, err := c.ParseChart(body)
	if err != nil {
		return nil, fmt.Errorf("parsing chart for %s: %w", req.String(), err)
	}

	return table, nil
}

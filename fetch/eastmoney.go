package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dnldd/etfsignal/shared"
	"github.com/tidwall/gjson"
)

const (
	eastMoneyBaseURL   = "https://push2his.eastmoney.com"
	eastMoneyKlinePath = "/api/qt/stock/kline/get"
	// eastMoneyUnboundedEnd is the range end used for unbounded requests.
	eastMoneyUnboundedEnd = "20500101"
)

// eastMoneyColumns lists the kline fields f51-f57 as the provider names them.
var eastMoneyColumns = []string{"日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额"}

// EastMoneyConfig represents the configuration for the EastMoney client.
type EastMoneyConfig struct {
	HTTPConfig
	// Adjust is the price adjustment, 0 none, 1 forward, 2 backward.
	Adjust int
}

// EastMoneyClient represents the EastMoney kline API client for exchange listed funds.
type EastMoneyClient struct {
	cfg   *EastMoneyConfig
	httpc *http.Client
}

// Ensure the EastMoneyClient implements the MarketFetcher interface.
var _ MarketFetcher = (*EastMoneyClient)(nil)

// NewEastMoneyClient instantiates a new EastMoney client.
func NewEastMoneyClient(cfg *EastMoneyConfig) (*EastMoneyClient, error) {
	httpc, err := newHTTPClient(&cfg.HTTPConfig)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}

	return &EastMoneyClient{cfg: cfg, httpc: httpc}, nil
}

// Name returns the data source name.
func (c *EastMoneyClient) Name() string {
	return "eastmoney"
}

// SecID returns the exchange qualified security id of the provided fund code.
// Shanghai listings are prefixed 1, Shenzhen listings 0.
func SecID(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}

	switch {
	case strings.HasPrefix(symbol, "5"), strings.HasPrefix(symbol, "6"),
		strings.HasPrefix(symbol, "9"):
		return "1." + symbol
	default:
		return "0." + symbol
	}
}

// klineType returns the kline period code of the provided frequency.
func klineType(frequency shared.Frequency) (string, error) {
	switch frequency {
	case shared.Daily:
		return "101", nil
	case shared.FiveMinute, shared.FifteenMinute, shared.ThirtyMinute, shared.SixtyMinute:
		return fmt.Sprint(frequency.Minutes()), nil
	default:
		return "", fmt.Errorf("unknown frequency provided: %s", frequency.String())
	}
}

// formURL creates the full kline url including parameters for the request.
func (c *EastMoneyClient) formURL(req *Request) (string, error) {
	klt, err := klineType(req.Frequency)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Add("secid", SecID(req.Symbol))
	params.Add("fields1", "f1,f2,f3,f4,f5,f6")
	params.Add("fields2", "f51,f52,f53,f54,f55,f56,f57")
	params.Add("klt", klt)
	params.Add("fqt", fmt.Sprint(c.cfg.Adjust))

	switch {
	case req.Unbounded:
		params.Add("beg", "0")
		params.Add("end", eastMoneyUnboundedEnd)
	default:
		params.Add("beg", req.Start.Format(shared.CompactDateLayout))
		params.Add("end", req.End.Format(shared.CompactDateLayout))
	}

	return c.cfg.baseURL(eastMoneyBaseURL) + eastMoneyKlinePath + "?" + params.Encode(), nil
}

// ParseKlines parses the kline payload into a raw table. Intraday rows carry
// their timestamp in a time column.
func (c *EastMoneyClient) ParseKlines(body []byte, frequency shared.Frequency) (*shared.RawTable, error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil, fmt.Errorf("no data in response: %s", gjson.GetBytes(body, "message").String())
	}

	columns := append([]string(nil), eastMoneyColumns...)
	if frequency.Intraday() {
		columns[0] = "时间"
	}

	table := shared.NewRawTable(columns...)
	klines := data.Get("klines").Array()
	for idx := range klines {
		fields := strings.Split(klines[idx].String(), ",")
		if len(fields) < len(columns) {
			return nil, fmt.Errorf("malformed kline %d: %s", idx, klines[idx].String())
		}
		table.Append(fields[:len(columns)]...)
	}

	return table, nil
}

// Fetch retrieves the klines of the requested fund.
func (c *EastMoneyClient) Fetch(ctx context.Context, req *Request) (*shared.RawTable, error) {
	target, err := c.formURL(req)
	if err != nil {
		return nil, err
	}

	body, err := get(ctx, c.httpc, target)
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", req.String(), err)
	}

	table, err := c.ParseKlines(body, req.Frequency)
	if err != nil {
		return nil, fmt.Errorf("parsing klines for %s: %w", req.String(), err)
	}

	return table, nil
}

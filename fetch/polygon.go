package fetch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dnldd/etfsignal/shared"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
)

// polygonUnboundedStart is the range start used for unbounded requests.
var polygonUnboundedStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PolygonConfig represents the configuration for the Polygon aggregates client.
type PolygonConfig struct {
	HTTPConfig
	// APIKey is the Polygon API key.
	APIKey string
}

// PolygonClient represents the Polygon aggregates API client.
type PolygonClient struct {
	cfg    *PolygonConfig
	client *polygon.Client
}

// Ensure the PolygonClient implements the MarketFetcher interface.
var _ MarketFetcher = (*PolygonClient)(nil)

// NewPolygonClient instantiates a new Polygon client.
func NewPolygonClient(cfg *PolygonConfig) (*PolygonClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("polygon api key cannot be an empty string")
	}

	httpc, err := newHTTPClient(&cfg.HTTPConfig)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}

	return &PolygonClient{
		cfg:    cfg,
		client: polygon.NewWithClient(cfg.APIKey, httpc),
	}, nil
}

// Name returns the data source name.
func (c *PolygonClient) Name() string {
	return "polygon"
}

// AggsParams returns the aggregates query of the provided request.
func AggsParams(req *Request) (*models.ListAggsParams, error) {
	var multiplier int
	var timespan models.Timespan

	switch req.Frequency {
	case shared.Daily:
		multiplier, timespan = 1, models.Day
	case shared.FiveMinute, shared.FifteenMinute, shared.ThirtyMinute, shared.SixtyMinute:
		multiplier, timespan = req.Frequency.Minutes(), models.Minute
	default:
		return nil, fmt.Errorf("unknown frequency provided: %s", req.Frequency.String())
	}

	from, to := req.Start, req.End
	if req.Unbounded {
		from, to = polygonUnboundedStart, time.Now()
	}

	params := models.ListAggsParams{
		Ticker:     req.Symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithAdjusted(true)

	return params, nil
}

// Fetch retrieves the aggregate bars of the requested ticker.
func (c *PolygonClient) Fetch(ctx context.Context, req *Request) (*shared.RawTable, error) {
	params, err := AggsParams(req)
	if err != nil {
		return nil, err
	}

	table := shared.NewRawTable(yahooColumns...)
	iter := c.client.ListAggs(ctx, params)
	for iter.Next() {
		agg := iter.Item()
		table.Append(
			strconv.FormatInt(time.Time(agg.Timestamp).UnixMilli(), 10),
			strconv.FormatFloat(agg.Open, 'f', -1, 64),
			strconv.FormatFloat(agg.High, 'f', -1, 64),
			strconv.FormatFloat(agg.Low, 'f', -1, 64),
			strconv.FormatFloat(agg.Close, 'f', -1, 64),
			strconv.FormatFloat(agg.Volume, 'f', -1, 64),
		)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing aggregates for %s: %w", req.String(), err)
	}

	return table, nil
}

// Package fetch retrieves raw market data tables from remote providers and local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dnldd/etfsignal/shared"
)

const (
	// DefaultTimeout is the default http request timeout for data providers.
	DefaultTimeout = time.Second * 15
	// maxErrorBody is the number of response body bytes quoted in status errors.
	maxErrorBody = 256
)

// Request describes a market data query.
type Request struct {
	Symbol    string
	Start     time.Time
	End       time.Time
	Frequency shared.Frequency
	// Unbounded ignores the date range and asks for all available history.
	Unbounded bool
}

// String stringifies the provided request.
func (r *Request) String() string {
	if r.Unbounded {
		return fmt.Sprintf("%s %s (unbounded)", r.Symbol, r.Frequency)
	}

	return fmt.Sprintf("%s %s [%s, %s]", r.Symbol, r.Frequency,
		r.Start.Format(shared.DateLayout), r.End.Format(shared.DateLayout))
}

// MarketFetcher defines the requirements for fetching market data.
type MarketFetcher interface {
	// Name returns the data source name.
	Name() string
	// Fetch retrieves a provider shaped table for the provided request.
	Fetch(ctx context.Context, req *Request) (*shared.RawTable, error)
}

// HTTPConfig represents the transport settings shared by remote data providers.
type HTTPConfig struct {
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Proxy is the proxy url requests are routed through, direct when empty.
	// The process environment is never consulted.
	Proxy string
	// Timeout is the request timeout, DefaultTimeout when zero.
	Timeout time.Duration
}

// newHTTPClient creates an http client honouring the provided transport settings.
func newHTTPClient(cfg *HTTPConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// baseURL returns the configured endpoint or the provided fallback.
func (c *HTTPConfig) baseURL(fallback string) string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}

	return fallback
}

// get performs a GET request and returns the response body.
func get(ctx context.Context, httpc *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

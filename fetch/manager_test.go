package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/etfsignal/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FetcherMock is a scripted market fetcher that records its requests.
type FetcherMock struct {
	name     string
	fetch    func(req *Request) (*shared.RawTable, error)
	requests []Request
}

func (m *FetcherMock) Name() string {
	return m.name
}

func (m *FetcherMock) Fetch(ctx context.Context, req *Request) (*shared.RawTable, error) {
	m.requests = append(m.requests, *req)
	return m.fetch(req)
}

// failing returns a fetcher mock that always errors.
func failing(name string) *FetcherMock {
	return &FetcherMock{
		name: name,
		fetch: func(req *Request) (*shared.RawTable, error) {
			return nil, errors.New("connection reset")
		},
	}
}

// oneRow returns a single row raw table.
func oneRow() *shared.RawTable {
	table := shared.NewRawTable("date", "close")
	table.Append("2025-01-02", "5.12")
	return table
}

func TestDefaultAttempts(t *testing.T) {
	primary, secondary := failing("primary"), failing("secondary")
	sources := []MarketFetcher{primary, secondary}

	// Ensure daily requests try every source ranged then unbounded.
	attempts := DefaultAttempts(sources, shared.Daily)
	got := make([]string, len(attempts))
	for idx := range attempts {
		got[idx] = attempts[idx].String()
	}
	assert.Equal(t, got, []string{
		"primary/daily/ranged",
		"secondary/daily/ranged",
		"primary/daily/unbounded",
		"secondary/daily/unbounded",
	})

	// Ensure intraday requests fall back to daily bars last.
	attempts = DefaultAttempts(sources, shared.FifteenMinute)
	assert.Equal(t, len(attempts), 6)
	assert.Equal(t, attempts[4].String(), "primary/daily/ranged")
	assert.Equal(t, attempts[5].String(), "secondary/daily/ranged")
}

func TestManagerConfigValidate(t *testing.T) {
	logger := zerolog.New(nil)

	tests := []struct {
		name        string
		cfg         ManagerConfig
		wantErr     bool
		errContains []string
	}{
		{
			name:    "valid config returns nil",
			cfg:     ManagerConfig{Attempts: []Attempt{{Source: failing("a")}}, Logger: &logger},
			wantErr: false,
		},
		{
			name:        "nil source",
			cfg:         ManagerConfig{Attempts: []Attempt{{}}, Logger: &logger},
			wantErr:     true,
			errContains: []string{"attempt 0 source cannot be nil"},
		},
		{
			name:        "multiple missing fields",
			cfg:         ManagerConfig{},
			wantErr:     true,
			errContains: []string{"no fetch attempts provided", "logger cannot be nil"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				for _, substr := range tt.errContains {
					assert.True(t, strings.Contains(err.Error(), substr))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManagerFallback(t *testing.T) {
	primary := failing("primary")
	secondary := &FetcherMock{
		name: "secondary",
		fetch: func(req *Request) (*shared.RawTable, error) {
			if !req.Unbounded {
				return shared.NewRawTable("date", "close"), nil
			}
			return oneRow(), nil
		},
	}

	mgr, err := NewManager(&ManagerConfig{
		Attempts: DefaultAttempts([]MarketFetcher{primary, secondary}, shared.Daily),
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Ensure empty tables count as failures and the chain continues in order.
	res, err := mgr.Fetch(context.Background(), "518880", start, end)
	assert.NoError(t, err)
	assert.Equal(t, res.Attempt.Source.Name(), "secondary")
	assert.True(t, res.Attempt.Unbounded)
	assert.Equal(t, res.Table.Len(), 1)
	assert.Equal(t, len(primary.requests), 2)
	assert.Equal(t, len(secondary.requests), 2)
	assert.Equal(t, secondary.requests[0].Symbol, "518880")
	assert.Equal(t, secondary.requests[0].Start, start)
}

func TestManagerExhausted(t *testing.T) {
	primary, secondary := failing("primary"), failing("secondary")
	mgr, err := NewManager(&ManagerConfig{
		Attempts: DefaultAttempts([]MarketFetcher{primary, secondary}, shared.FiveMinute),
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)

	// Ensure exhausting the chain reports every attempt.
	_, err = mgr.Fetch(context.Background(), "159934", time.Time{}, time.Time{})
	var unavailable *shared.DataUnavailableError
	assert.True(t, errors.As(err, &unavailable))
	assert.Equal(t, unavailable.Symbol, "159934")
	assert.Equal(t, len(unavailable.Attempts), 6)
	assert.True(t, strings.Contains(unavailable.Attempts[5].Error(), "secondary/daily/ranged"))

	// Ensure a cancelled context stops the chain.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mgr.Fetch(ctx, "159934", time.Time{}, time.Time{})
	assert.True(t, errors.As(err, &unavailable))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, len(primary.requests), 3)
}

package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"pricefeed/internal/pricing"
)

// MockAdapter is a hand-rolled implementation of pricing.HistoricalAdapter
// for tests. Call counts are atomic so concurrent lookups can assert on
// them safely.
type MockAdapter struct {
	NameValue           string
	FetchCurrentFunc    func(ctx context.Context, symbol string) (pricing.PriceRecord, error)
	FetchHistoricalFunc func(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error)

	currentCalls    atomic.Int64
	historicalCalls atomic.Int64
}

// Name implements pricing.Adapter
func (m *MockAdapter) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// FetchCurrent implements pricing.Adapter
func (m *MockAdapter) FetchCurrent(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
	m.currentCalls.Add(1)
	if m.FetchCurrentFunc != nil {
		return m.FetchCurrentFunc(ctx, symbol)
	}
	return pricing.PriceRecord{}, pricing.NewProviderUnavailable(m.Name(), "no FetchCurrentFunc configured", nil)
}

// FetchHistorical implements pricing.HistoricalAdapter
func (m *MockAdapter) FetchHistorical(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	m.historicalCalls.Add(1)
	if m.FetchHistoricalFunc != nil {
		return m.FetchHistoricalFunc(ctx, symbol, date)
	}
	return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(m.Name(), "no FetchHistoricalFunc configured", nil)
}

// CurrentCalls reports how many times FetchCurrent ran.
func (m *MockAdapter) CurrentCalls() int { return int(m.currentCalls.Load()) }

// HistoricalCalls reports how many times FetchHistorical ran.
func (m *MockAdapter) HistoricalCalls() int { return int(m.historicalCalls.Load()) }

// NewPriceAdapter creates a mock that always returns the given price.
func NewPriceAdapter(name string, price float64) *MockAdapter {
	return &MockAdapter{
		NameValue: name,
		FetchCurrentFunc: func(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
			return pricing.PriceRecord{Price: price, Source: name, Timestamp: time.Now().UTC()}, nil
		},
		FetchHistoricalFunc: func(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
			return pricing.HistoricalPriceRecord{Price: price, Date: date, Source: name, Exists: true}, nil
		},
	}
}

// NewFailingAdapter creates a mock whose every fetch fails.
func NewFailingAdapter(name string) *MockAdapter {
	return &MockAdapter{
		NameValue: name,
		FetchCurrentFunc: func(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
			return pricing.PriceRecord{}, pricing.NewProviderUnavailable(name, "mock failure", nil)
		},
		FetchHistoricalFunc: func(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
			return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(name, "mock failure", nil)
		},
	}
}

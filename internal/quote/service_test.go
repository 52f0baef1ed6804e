package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefeed/internal/pricecache"
	"pricefeed/internal/pricing"
	"pricefeed/internal/ratelimit"
	fallbackresolver "pricefeed/internal/resolver"
	"pricefeed/internal/testutil"
)

func newService(chains map[pricing.AssetType][]pricing.Adapter) (*Service, *pricecache.Cache) {
	cache := pricecache.New()
	res := fallbackresolver.New(chains, ratelimit.New(), nil)
	return New(cache, res, nil), cache
}

func TestGetCurrentPrice_ResolvesAndCaches(t *testing.T) {
	adapter := testutil.NewPriceAdapter("A", 65000)
	svc, cache := newService(map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetCrypto: {adapter},
	})

	rec, err := svc.GetCurrentPrice(context.Background(), pricing.AssetCrypto, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 65000.0, rec.Price)
	assert.Equal(t, "A", rec.Source)

	cached, ok := cache.GetCurrent(pricing.AssetCrypto, "BTC")
	require.True(t, ok)
	assert.Equal(t, rec, cached)
}

func TestGetCurrentPrice_SameDaySecondCallHitsCache(t *testing.T) {
	adapter := testutil.NewPriceAdapter("A", 65000)
	svc, _ := newService(map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetCrypto: {adapter},
	})

	first, err := svc.GetCurrentPrice(context.Background(), pricing.AssetCrypto, "BTC")
	require.NoError(t, err)

	second, err := svc.GetCurrentPrice(context.Background(), pricing.AssetCrypto, "BTC")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, adapter.CurrentCalls(), "second same-day lookup must not invoke any adapter")
}

func TestGetCurrentPrice_FailureNotCached(t *testing.T) {
	svc, cache := newService(map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetIndex: {testutil.NewFailingAdapter("A"), testutil.NewFailingAdapter("B")},
	})

	_, err := svc.GetCurrentPrice(context.Background(), pricing.AssetIndex, "SPX")
	require.Error(t, err)
	assert.True(t, pricing.IsKind(err, pricing.KindAllProvidersUnavailable))
	assert.Equal(t, 0, cache.Len(), "failed resolutions must never be cached")
}

func TestGetHistoricalPrice_ConfirmedDataCachedForever(t *testing.T) {
	adapter := testutil.NewPriceAdapter("A", 50000)
	svc, _ := newService(map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetCrypto: {adapter},
	})
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	first, err := svc.GetHistoricalPrice(context.Background(), pricing.AssetCrypto, "BTC", date)
	require.NoError(t, err)
	require.True(t, first.Exists)

	second, err := svc.GetHistoricalPrice(context.Background(), pricing.AssetCrypto, "BTC", date)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, adapter.HistoricalCalls(), "repeat lookup for confirmed history must not re-invoke adapters")
}

func TestGetHistoricalPrice_NoDataRetriedNextCall(t *testing.T) {
	adapter := &testutil.MockAdapter{
		NameValue: "A",
		FetchHistoricalFunc: func(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
			return pricing.HistoricalPriceRecord{Date: date, Exists: false}, nil
		},
	}
	svc, _ := newService(map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetIndex: {adapter},
	})
	saturday := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	rec, err := svc.GetHistoricalPrice(context.Background(), pricing.AssetIndex, "SPX", saturday)
	require.NoError(t, err, "no trading data is an outcome, not an error")
	assert.False(t, rec.Exists)

	_, err = svc.GetHistoricalPrice(context.Background(), pricing.AssetIndex, "SPX", saturday)
	require.NoError(t, err)
	assert.Equal(t, 2, adapter.HistoricalCalls(), "Exists=false must be retried, the provider may backfill")
}

func TestYield_Computation(t *testing.T) {
	adapter := &testutil.MockAdapter{
		NameValue: "A",
		FetchCurrentFunc: func(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
			return pricing.PriceRecord{Price: 65000, Source: "A", Timestamp: time.Now().UTC()}, nil
		},
		FetchHistoricalFunc: func(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
			return pricing.HistoricalPriceRecord{Price: 50000, Date: date, Source: "A", Exists: true}, nil
		},
	}
	svc, _ := newService(map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetCrypto: {adapter},
	})

	res, err := svc.Yield(context.Background(), pricing.AssetCrypto, "BTC",
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Percent)
	assert.Equal(t, 50000.0, res.From.Price)
	assert.Equal(t, 65000.0, res.To.Price)
}

func TestYield_NoReferenceData(t *testing.T) {
	adapter := &testutil.MockAdapter{
		NameValue: "A",
		FetchHistoricalFunc: func(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
			return pricing.HistoricalPriceRecord{Date: date, Exists: false}, nil
		},
	}
	svc, _ := newService(map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetIndex: {adapter},
	})

	res, err := svc.Yield(context.Background(), pricing.AssetIndex, "SPX",
		time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, res.From.Exists)
	assert.Zero(t, res.Percent)
	assert.Equal(t, 0, adapter.CurrentCalls(), "no current lookup when the reference date has no data")
}

func TestYieldPercent_Rounding(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{50000, 65000, 30.0},
		{100, 100, 0.0},
		{100, 99, -1.0},
		{3, 4, 33.33},
		{30000, 65432.10, 118.11},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, YieldPercent(tt.from, tt.to), "YieldPercent(%v, %v)", tt.from, tt.to)
	}
}

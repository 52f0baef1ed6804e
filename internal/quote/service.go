// Package quote is the only surface the rest of the application calls for
// prices: a cache-first facade over the fallback resolver.
package quote

import (
	"context"
	"log/slog"
	"math"
	"time"

	"pricefeed/internal/pricecache"
	"pricefeed/internal/pricing"
)

// resolver is what the service needs from the fallback layer.
type resolver interface {
	ResolveCurrent(ctx context.Context, assetType pricing.AssetType, symbol string) (pricing.PriceRecord, error)
	ResolveHistorical(ctx context.Context, assetType pricing.AssetType, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error)
}

// Service answers current-price and historical-price queries. Cache and
// resolver are constructor-injected so tests can supply isolated instances.
type Service struct {
	cache    *pricecache.Cache
	resolver resolver
	logger   *slog.Logger
}

// New creates a Service.
func New(cache *pricecache.Cache, res resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, resolver: res, logger: logger}
}

// GetCurrentPrice returns the latest quote for (assetType, symbol). A
// cached same-day (UTC) value is returned without any upstream call;
// otherwise the resolver is invoked and a success is cached before being
// returned. The service itself never retries a failed resolution.
func (s *Service) GetCurrentPrice(ctx context.Context, assetType pricing.AssetType, symbol string) (pricing.PriceRecord, error) {
	if rec, ok := s.cache.GetCurrent(assetType, symbol); ok {
		s.logger.Debug("cache hit", "asset_type", assetType, "symbol", symbol, "source", rec.Source)
		return rec, nil
	}

	rec, err := s.resolver.ResolveCurrent(ctx, assetType, symbol)
	if err != nil {
		return pricing.PriceRecord{}, err
	}
	s.cache.PutCurrent(assetType, symbol, rec)
	return rec, nil
}

// GetHistoricalPrice returns the quote as of a past UTC calendar date.
// Exists=true results are cached forever; Exists=false results are
// returned as-is and retried on the next call, since a provider may
// backfill the date later.
func (s *Service) GetHistoricalPrice(ctx context.Context, assetType pricing.AssetType, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	if rec, ok := s.cache.GetHistorical(assetType, symbol, date); ok {
		s.logger.Debug("cache hit", "asset_type", assetType, "symbol", symbol, "date", pricing.DateKey(date), "source", rec.Source)
		return rec, nil
	}

	rec, err := s.resolver.ResolveHistorical(ctx, assetType, symbol, date)
	if err != nil {
		return pricing.HistoricalPriceRecord{}, err
	}
	s.cache.PutHistorical(assetType, symbol, rec)
	return rec, nil
}

// YieldResult is the percentage return between a past close and the
// current quote, with both provenance records attached.
type YieldResult struct {
	AssetType pricing.AssetType             `json:"asset_type"`
	Symbol    string                        `json:"symbol"`
	From      pricing.HistoricalPriceRecord `json:"from"`
	To        pricing.PriceRecord           `json:"to"`
	Percent   float64                       `json:"percent"`
}

// Yield computes the percentage return of (assetType, symbol) since a past
// date. When the reference date has no trading data, the zero YieldResult
// is returned with From.Exists=false and no error.
func (s *Service) Yield(ctx context.Context, assetType pricing.AssetType, symbol string, since time.Time) (YieldResult, error) {
	hist, err := s.GetHistoricalPrice(ctx, assetType, symbol, since)
	if err != nil {
		return YieldResult{}, err
	}
	if !hist.Exists {
		return YieldResult{AssetType: assetType, Symbol: symbol, From: hist}, nil
	}

	cur, err := s.GetCurrentPrice(ctx, assetType, symbol)
	if err != nil {
		return YieldResult{}, err
	}

	return YieldResult{
		AssetType: assetType,
		Symbol:    symbol,
		From:      hist,
		To:        cur,
		Percent:   YieldPercent(hist.Price, cur.Price),
	}, nil
}

// YieldPercent is (to-from)/from*100 rounded to two decimals.
func YieldPercent(from, to float64) float64 {
	return math.Round((to-from)/from*100*100) / 100
}

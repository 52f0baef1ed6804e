// Package resolver tries provider adapters in a fixed priority order until
// one answers, applying per-provider admission control before each call.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"pricefeed/internal/pricing"
	"pricefeed/internal/ratelimit"
)

// Resolver holds the priority-ordered adapter chain per asset type. The
// order is fixed by configuration and never re-ranked at runtime: it
// encodes the known reliability of each upstream, and determinism beats
// adaptivity for debugging provenance.
//
// Adapters are stateless and shared; the only mutable state the resolver
// touches is the injected Governor (and the optional global limiter).
type Resolver struct {
	chains   map[pricing.AssetType][]pricing.Adapter
	governor *ratelimit.Governor
	limits   map[string]ratelimit.Limit
	global   *rate.Limiter
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGlobalLimit caps total outbound requests per second across all
// providers, on top of the per-provider windows.
func WithGlobalLimit(perSecond float64, burst int) Option {
	return func(r *Resolver) {
		if perSecond > 0 {
			r.global = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the structured logger used for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver over the given adapter chains. limits maps an
// adapter name to its sliding-window budget; adapters without an entry are
// not rate limited.
func New(chains map[pricing.AssetType][]pricing.Adapter, governor *ratelimit.Governor, limits map[string]ratelimit.Limit, opts ...Option) *Resolver {
	r := &Resolver{
		chains:   chains,
		governor: governor,
		limits:   limits,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCurrent asks each adapter for the asset type, in priority order,
// for the latest quote. The first valid result is returned with Source set
// to the winning adapter's name. When every adapter fails, the last error
// is wrapped in an all_providers_unavailable LookupError.
func (r *Resolver) ResolveCurrent(ctx context.Context, assetType pricing.AssetType, symbol string) (pricing.PriceRecord, error) {
	var lastErr error
	for _, adapter := range r.chains[assetType] {
		if err := r.admit(ctx, adapter.Name()); err != nil {
			lastErr = err
			continue
		}

		rec, err := adapter.FetchCurrent(ctx, symbol)
		if err != nil {
			r.logger.Debug("provider failed, trying next",
				"provider", adapter.Name(), "asset_type", assetType, "symbol", symbol, "error", err)
			lastErr = err
			continue
		}
		if !pricing.ValidPrice(rec.Price) {
			lastErr = pricing.NewProviderUnavailable(adapter.Name(), "non-positive price in response", nil)
			continue
		}
		rec.Source = adapter.Name()
		return rec, nil
	}
	return pricing.PriceRecord{}, pricing.NewAllProvidersUnavailable(assetType, symbol, lastErr)
}

// ResolveHistorical is ResolveCurrent for a date-keyed lookup. Adapters
// that do not implement HistoricalAdapter are skipped. A confirmed
// Exists=false outcome is an answer, not a failure: it is returned
// immediately without consulting lower-priority adapters.
func (r *Resolver) ResolveHistorical(ctx context.Context, assetType pricing.AssetType, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	var lastErr error
	attempted := false
	for _, adapter := range r.chains[assetType] {
		ha, ok := adapter.(pricing.HistoricalAdapter)
		if !ok {
			continue
		}
		attempted = true

		if err := r.admit(ctx, adapter.Name()); err != nil {
			lastErr = err
			continue
		}

		rec, err := ha.FetchHistorical(ctx, symbol, date)
		if err != nil {
			r.logger.Debug("provider failed, trying next",
				"provider", adapter.Name(), "asset_type", assetType, "symbol", symbol,
				"date", pricing.DateKey(date), "error", err)
			lastErr = err
			continue
		}
		if !rec.Exists {
			rec.Source = adapter.Name()
			rec.Date = date
			return rec, nil
		}
		if !pricing.ValidPrice(rec.Price) {
			lastErr = pricing.NewProviderUnavailable(adapter.Name(), "non-positive price in response", nil)
			continue
		}
		rec.Source = adapter.Name()
		return rec, nil
	}
	if !attempted && lastErr == nil {
		lastErr = pricing.NewProviderUnavailable("", "no adapter supports historical lookups", nil)
	}
	return pricing.HistoricalPriceRecord{}, pricing.NewAllProvidersUnavailable(assetType, symbol, lastErr)
}

// admit consults the governor for one adapter. When declined it waits the
// indicated duration once and re-checks; a second decline moves the
// resolver on to the next adapter.
func (r *Resolver) admit(ctx context.Context, providerKey string) error {
	limit, ok := r.limits[providerKey]
	if ok {
		decision := r.governor.CanProceed(providerKey, limit)
		if !decision.Allowed {
			r.logger.Debug("rate limited, backing off once",
				"provider", providerKey, "wait", decision.Wait)
			if err := sleepCtx(ctx, decision.Wait); err != nil {
				return pricing.NewProviderUnavailable(providerKey, "canceled during rate-limit wait", err)
			}
			decision = r.governor.CanProceed(providerKey, limit)
			if !decision.Allowed {
				return pricing.NewRateLimited(providerKey)
			}
		}
	}
	if r.global != nil {
		if err := r.global.Wait(ctx); err != nil {
			return pricing.NewProviderUnavailable(providerKey, "canceled waiting for global budget", err)
		}
	}
	return nil
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

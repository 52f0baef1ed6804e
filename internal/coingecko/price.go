// Package coingecko adapts the CoinGecko aggregator API, the last resort
// in the crypto provider chain.
package coingecko

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"pricefeed/internal/pricing"
)

const (
	// Name is the provenance tag and rate-governor key for this provider.
	Name = "coingecko"

	// CoinGecko's free tier is slow and aggressively throttled.
	defaultTimeout = 12 * time.Second
)

// historyResponse represents /api/v3/coins/{id}/history. market_data is
// omitted entirely when the coin has no snapshot for the date.
type historyResponse struct {
	ID         string `json:"id"`
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// Adapter fetches crypto quotes from CoinGecko. symbols maps canonical
// symbols to CoinGecko coin ids (BTC -> bitcoin).
type Adapter struct {
	symbols map[string]string
	client  *resty.Client
}

// New creates a CoinGecko adapter. baseURL is overridable for tests.
func New(symbols map[string]string, baseURL string) *Adapter {
	return &Adapter{
		symbols: symbols,
		client:  pricing.NewHTTPClient(baseURL, defaultTimeout),
	}
}

// Name implements pricing.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchCurrent retrieves the aggregated USD price for a canonical symbol.
func (a *Adapter) FetchCurrent(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
	id, ok := a.symbols[symbol]
	if !ok {
		return pricing.PriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	// simple/price returns {"<id>": {"usd": <price>}}
	var result map[string]map[string]float64
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           id,
			"vs_currencies": "usd",
		}).
		SetResult(&result).
		Get("/api/v3/simple/price")
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "simple/price request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("simple/price returned status %d", resp.StatusCode()), nil)
	}

	price, ok := result[id]["usd"]
	if !ok || !pricing.ValidPrice(price) {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("no usable usd price for %s", id), nil)
	}

	return pricing.PriceRecord{Price: price, Source: Name, Timestamp: time.Now().UTC()}, nil
}

// FetchHistorical retrieves the coin's USD price snapshot for a past date.
// A response without market_data is a confirmed Exists=false outcome.
func (a *Adapter) FetchHistorical(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	id, ok := a.symbols[symbol]
	if !ok {
		return pricing.HistoricalPriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	day := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)

	var result historyResponse
	resp, err := a.client.R().
		SetContext(ctx).
		// The history endpoint wants dd-mm-yyyy.
		SetQueryParam("date", day.Format("02-01-2006")).
		SetQueryParam("localization", "false").
		SetResult(&result).
		Get("/api/v3/coins/" + id + "/history")
	if err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "history request failed", err)
	}
	if resp.StatusCode() == 404 {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unknown coin id %s", id), nil)
	}
	if !resp.IsSuccess() {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("history returned status %d", resp.StatusCode()), nil)
	}

	// The history document always echoes the coin id, even for dates with
	// no snapshot. Without it the body was empty or not this document, so
	// the absent market_data proves nothing.
	if result.ID == "" {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "empty or malformed history body", nil)
	}
	if result.MarketData == nil {
		return pricing.HistoricalPriceRecord{Date: day, Source: Name, Exists: false}, nil
	}
	price, ok := result.MarketData.CurrentPrice["usd"]
	if !ok || !pricing.ValidPrice(price) {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("no usable usd price for %s on %s", id, pricing.DateKey(day)), nil)
	}

	return pricing.HistoricalPriceRecord{Price: price, Date: day, Source: Name, Exists: true}, nil
}

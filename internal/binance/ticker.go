// Package binance adapts the Binance spot REST API. First choice in the
// crypto provider chain.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"pricefeed/internal/pricing"
)

const (
	// Name is the provenance tag and rate-governor key for this provider.
	Name = "binance"

	defaultTimeout = 8 * time.Second
)

// tickerResponse represents /api/v3/ticker/price
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Adapter fetches crypto quotes from Binance. symbols maps canonical
// symbols to Binance trading pairs (BTC -> BTCUSDT).
type Adapter struct {
	symbols map[string]string
	client  *resty.Client
}

// New creates a Binance adapter. baseURL is overridable for tests.
func New(symbols map[string]string, baseURL string) *Adapter {
	return &Adapter{
		symbols: symbols,
		client:  pricing.NewHTTPClient(baseURL, defaultTimeout),
	}
}

// Name implements pricing.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchCurrent retrieves the latest trade price for a canonical symbol.
func (a *Adapter) FetchCurrent(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
	pair, ok := a.symbols[symbol]
	if !ok {
		return pricing.PriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	var result tickerResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", pair).
		SetResult(&result).
		Get("/api/v3/ticker/price")
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "ticker request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("ticker returned status %d", resp.StatusCode()), nil)
	}

	price, err := strconv.ParseFloat(result.Price, 64)
	if err != nil || !pricing.ValidPrice(price) {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable price %q for %s", result.Price, pair), err)
	}

	return pricing.PriceRecord{Price: price, Source: Name, Timestamp: time.Now().UTC()}, nil
}

// FetchHistorical retrieves the daily close for a past UTC date via the
// klines endpoint. An empty kline list means Binance has no candle for
// that day (e.g. before the pair was listed) and is reported Exists=false.
func (a *Adapter) FetchHistorical(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	pair, ok := a.symbols[symbol]
	if !ok {
		return pricing.HistoricalPriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	day := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	start := day.UnixMilli()
	end := day.Add(24*time.Hour).UnixMilli() - 1

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    pair,
			"interval":  "1d",
			"startTime": strconv.FormatInt(start, 10),
			"endTime":   strconv.FormatInt(end, 10),
			"limit":     "1",
		}).
		Get("/api/v3/klines")
	if err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "klines request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("klines returned status %d", resp.StatusCode()), nil)
	}

	// Klines come back as arrays of mixed types:
	// [openTime, "open", "high", "low", "close", "volume", ...]
	// Decoded by hand so an empty or truncated body cannot pass for the
	// literal [] that confirms a missing candle.
	body := strings.TrimSpace(resp.String())
	if body == "" {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "empty klines body", nil)
	}
	var klines [][]any
	if err := json.Unmarshal([]byte(body), &klines); err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "malformed klines body", err)
	}

	if len(klines) == 0 {
		return pricing.HistoricalPriceRecord{Date: day, Source: Name, Exists: false}, nil
	}
	if len(klines[0]) < 5 {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "malformed kline row", nil)
	}

	closeStr, ok := klines[0][4].(string)
	if !ok {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "malformed kline close field", nil)
	}
	price, err := strconv.ParseFloat(closeStr, 64)
	if err != nil || !pricing.ValidPrice(price) {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable close %q for %s", closeStr, pair), err)
	}

	return pricing.HistoricalPriceRecord{Price: price, Date: day, Source: Name, Exists: true}, nil
}

// Package okx adapts the OKX market REST API, the second source in the
// crypto provider chain.
package okx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"resty.dev/v3"

	"pricefeed/internal/pricing"
)

const (
	// Name is the provenance tag and rate-governor key for this provider.
	Name = "okx"

	defaultTimeout = 8 * time.Second
)

// tickerResponse represents /api/v5/market/ticker. OKX wraps every payload
// in {code, msg, data} and reports errors with code != "0" on HTTP 200.
type tickerResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	} `json:"data"`
}

// candlesResponse represents /api/v5/market/history-candles; rows are
// [ts, open, high, low, close, ...] as strings.
type candlesResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// Adapter fetches crypto quotes from OKX. symbols maps canonical symbols
// to OKX instrument ids (BTC -> BTC-USDT).
type Adapter struct {
	symbols map[string]string
	client  *resty.Client
}

// New creates an OKX adapter. baseURL is overridable for tests.
func New(symbols map[string]string, baseURL string) *Adapter {
	return &Adapter{
		symbols: symbols,
		client:  pricing.NewHTTPClient(baseURL, defaultTimeout),
	}
}

// Name implements pricing.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchCurrent retrieves the last traded price for a canonical symbol.
func (a *Adapter) FetchCurrent(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
	instID, ok := a.symbols[symbol]
	if !ok {
		return pricing.PriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	var result tickerResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("instId", instID).
		SetResult(&result).
		Get("/api/v5/market/ticker")
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "ticker request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("ticker returned status %d", resp.StatusCode()), nil)
	}
	if result.Code != "0" || len(result.Data) == 0 {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("ticker error code %s: %s", result.Code, result.Msg), nil)
	}

	price, err := strconv.ParseFloat(result.Data[0].Last, 64)
	if err != nil || !pricing.ValidPrice(price) {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable price %q for %s", result.Data[0].Last, instID), err)
	}

	return pricing.PriceRecord{Price: price, Source: Name, Timestamp: time.Now().UTC()}, nil
}

// FetchHistorical retrieves the 1D candle close for a past UTC date. An
// empty candle list is a confirmed Exists=false outcome.
func (a *Adapter) FetchHistorical(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	instID, ok := a.symbols[symbol]
	if !ok {
		return pricing.HistoricalPriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	day := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	// history-candles paginates backwards: "after" returns rows with
	// ts < after, so asking after end-of-day with limit 1 yields the
	// candle for the requested day when one exists.
	after := day.Add(24 * time.Hour).UnixMilli()

	var result candlesResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"instId": instID,
			"bar":    "1Dutc",
			"after":  strconv.FormatInt(after, 10),
			"limit":  "1",
		}).
		SetResult(&result).
		Get("/api/v5/market/history-candles")
	if err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "candles request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("candles returned status %d", resp.StatusCode()), nil)
	}
	if result.Code != "0" {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("candles error code %s: %s", result.Code, result.Msg), nil)
	}
	if len(result.Data) == 0 {
		return pricing.HistoricalPriceRecord{Date: day, Source: Name, Exists: false}, nil
	}

	row := result.Data[0]
	if len(row) < 5 {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "malformed candle row", nil)
	}

	// The newest candle before "after" may belong to an earlier day when
	// the requested date predates the listing.
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "malformed candle timestamp", err)
	}
	if pricing.DateKey(time.UnixMilli(ts)) != pricing.DateKey(day) {
		return pricing.HistoricalPriceRecord{Date: day, Source: Name, Exists: false}, nil
	}

	price, err := strconv.ParseFloat(row[4], 64)
	if err != nil || !pricing.ValidPrice(price) {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable close %q for %s", row[4], instID), err)
	}

	return pricing.HistoricalPriceRecord{Price: price, Date: day, Source: Name, Exists: true}, nil
}

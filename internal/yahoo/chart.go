// Package yahoo adapts the Yahoo Finance chart API, the primary source for
// stocks and indexes.
package yahoo

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
	Name = "yahoo"

	defaultTimeout = 8 * time.Second
)

// chartResponse represents /v8/finance/chart/{symbol}
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Adapter fetches equity and index quotes from Yahoo Finance. symbols maps
// canonical symbols to Yahoo tickers (SPX -> ^GSPC).
type Adapter struct {
	symbols map[string]string
	client  *resty.Client
}

// New creates a Yahoo adapter. baseURL is overridable for tests.
func New(symbols map[string]string, baseURL string) *Adapter {
	client := pricing.NewHTTPClient(baseURL, defaultTimeout)
	// Yahoo rejects requests without a browser-ish user agent.
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; pricefeed/1.0)")
	return &Adapter{symbols: symbols, client: client}
}

// Name implements pricing.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchCurrent retrieves chart.result[0].meta.regularMarketPrice.
func (a *Adapter) FetchCurrent(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
	ticker, ok := a.symbols[symbol]
	if !ok {
		return pricing.PriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	var result chartResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "1d",
		}).
		SetResult(&result).
		Get("/v8/finance/chart/" + ticker)
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "chart request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("chart returned status %d", resp.StatusCode()), nil)
	}
	if result.Chart.Error != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("chart error %s: %s", result.Chart.Error.Code, result.Chart.Error.Description), nil)
	}
	if len(result.Chart.Result) == 0 {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "empty chart result", nil)
	}

	price := result.Chart.Result[0].Meta.RegularMarketPrice
	if !pricing.ValidPrice(price) {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable market price %v for %s", price, ticker), nil)
	}

	return pricing.PriceRecord{Price: price, Source: Name, Timestamp: time.Now().UTC()}, nil
}

// FetchHistorical retrieves the daily close for a past UTC date. Yahoo
// returns an empty timestamp array for non-trading days (weekends,
// holidays), which is a confirmed Exists=false outcome.
func (a *Adapter) FetchHistorical(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	ticker, ok := a.symbols[symbol]
	if !ok {
		return pricing.HistoricalPriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	day := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	period1 := day.Unix()
	period2 := day.Add(24 * time.Hour).Unix()

	var result chartResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"period1":  strconv.FormatInt(period1, 10),
			"period2":  strconv.FormatInt(period2, 10),
		}).
		SetResult(&result).
		Get("/v8/finance/chart/" + ticker)
	if err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "chart request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("chart returned status %d", resp.StatusCode()), nil)
	}
	if result.Chart.Error != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("chart error %s: %s", result.Chart.Error.Code, result.Chart.Error.Description), nil)
	}
	if len(result.Chart.Result) == 0 {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "empty chart result", nil)
	}

	r := result.Chart.Result[0]
	if len(r.Timestamp) == 0 {
		return pricing.HistoricalPriceRecord{Date: day, Source: Name, Exists: false}, nil
	}
	if len(r.Indicators.Quote) == 0 || len(r.Indicators.Quote[0].Close) == 0 {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "chart result missing close series", nil)
	}

	price := r.Indicators.Quote[0].Close[0]
	if !pricing.ValidPrice(price) {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable close %v for %s", price, ticker), nil)
	}

	return pricing.HistoricalPriceRecord{Price: price, Date: day, Source: Name, Exists: true}, nil
}

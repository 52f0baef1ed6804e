// Package stooq adapts the Stooq CSV download API, the secondary source
// for stocks and indexes.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"pricefeed/internal/pricing"
)

const (
	// Name is the provenance tag and rate-governor key for this provider.
	Name = "stooq"

	defaultTimeout = 8 * time.Second
)

// Adapter fetches equity and index quotes from Stooq. symbols maps
// canonical symbols to Stooq tickers (AAPL -> aapl.us, SPX -> ^spx).
type Adapter struct {
	symbols map[string]string
	client  *resty.Client
}

// New creates a Stooq adapter. baseURL is overridable for tests.
func New(symbols map[string]string, baseURL string) *Adapter {
	client := pricing.NewHTTPClient(baseURL, defaultTimeout)
	client.SetHeader("Accept", "text/csv")
	return &Adapter{symbols: symbols, client: client}
}

// Name implements pricing.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchCurrent retrieves the lite CSV quote:
// Symbol,Date,Time,Open,High,Low,Close,Volume. Unknown symbols come back
// with N/D fields rather than an error status.
func (a *Adapter) FetchCurrent(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
	ticker, ok := a.symbols[symbol]
	if !ok {
		return pricing.PriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s": ticker,
			"f": "sd2t2ohlcv",
			"h": "",
			"e": "csv",
		}).
		Get("/q/l/")
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "quote request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("quote returned status %d", resp.StatusCode()), nil)
	}

	records, err := parseCSV(resp.String())
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "malformed quote CSV", err)
	}
	if len(records) < 2 || len(records[1]) < 7 {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "empty quote CSV", nil)
	}

	closeField := records[1][6]
	if closeField == "N/D" {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("no data for ticker %s", ticker), nil)
	}
	price, err := strconv.ParseFloat(closeField, 64)
	if err != nil || !pricing.ValidPrice(price) {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable close %q for %s", closeField, ticker), err)
	}

	return pricing.PriceRecord{Price: price, Source: Name, Timestamp: time.Now().UTC()}, nil
}

// FetchHistorical retrieves the daily download CSV
// (Date,Open,High,Low,Close,Volume) restricted to one date. A header-only
// body means the market did not trade that day and is reported
// Exists=false.
func (a *Adapter) FetchHistorical(ctx context.Context, symbol string, date time.Time) (pricing.HistoricalPriceRecord, error) {
	ticker, ok := a.symbols[symbol]
	if !ok {
		return pricing.HistoricalPriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	day := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	stamp := day.Format("20060102")

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s":  ticker,
			"d1": stamp,
			"d2": stamp,
			"i":  "d",
		}).
		Get("/q/d/l/")
	if err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "history request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("history returned status %d", resp.StatusCode()), nil)
	}

	body := resp.String()
	if strings.HasPrefix(strings.TrimSpace(body), "No data") {
		return pricing.HistoricalPriceRecord{Date: day, Source: Name, Exists: false}, nil
	}

	records, err := parseCSV(body)
	if err != nil {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "malformed history CSV", err)
	}
	// Only a header row followed by zero data rows confirms a non-trading
	// day. A body with no header at all is a broken response, not an answer.
	if len(records) == 0 {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "empty history body", nil)
	}
	if len(records) == 1 {
		return pricing.HistoricalPriceRecord{Date: day, Source: Name, Exists: false}, nil
	}
	row := records[1]
	if len(row) < 5 {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name, "short history CSV row", nil)
	}

	price, err := strconv.ParseFloat(row[4], 64)
	if err != nil || !pricing.ValidPrice(price) {
		return pricing.HistoricalPriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("unusable close %q for %s", row[4], ticker), err)
	}

	return pricing.HistoricalPriceRecord{Price: price, Date: day, Source: Name, Exists: true}, nil
}

// parseCSV parses a CSV body into records, header row included.
func parseCSV(body string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

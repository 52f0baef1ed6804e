// Package sina adapts the Sina Finance hq quote endpoint, the source for
// the "domestic" asset class (mainland indexes and the CN treasury yield).
// Current quotes only; Sina has no stable daily-history endpoint here.
package sina

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"pricefeed/internal/pricing"
)

const (
	// Name is the provenance tag and rate-governor key for this provider.
	Name = "sina"

	defaultTimeout = 8 * time.Second

	// Sina ids with this prefix are global bond yield series.
	bondPrefix = "globalbd_"
)

// payloadRe pulls the quoted CSV payload out of
// `var hq_str_<id>="...";`. The name field is GBK-encoded but every
// numeric field is plain ASCII, so no charset conversion is needed.
var payloadRe = regexp.MustCompile(`var hq_str_[^=]+="([^"]*)"`)

// Adapter fetches domestic quotes from Sina Finance. symbols maps
// canonical symbols to Sina list ids (SSE -> sh000001, CN10Y ->
// globalbd_gcny10).
type Adapter struct {
	symbols map[string]string
	client  *resty.Client
}

// New creates a Sina adapter. baseURL is overridable for tests.
func New(symbols map[string]string, baseURL string) *Adapter {
	client := pricing.NewHTTPClient(baseURL, defaultTimeout)
	// Sina rejects hq requests without a finance.sina.com.cn referer.
	client.SetHeader("Referer", "https://finance.sina.com.cn/")
	return &Adapter{symbols: symbols, client: client}
}

// Name implements pricing.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchCurrent retrieves and parses one hq_str payload.
//
// Field layout depends on the id class:
//   - globalbd_* yield series: value is field 1, and the upstream quotes
//     it at 10x the actual percentage. This is a documented Sina quirk,
//     corrected once here at the adapter boundary; do not divide again
//     downstream, and if the upstream ever fixes it remove the divide
//     rather than stacking a second correction.
//   - index ids (sh/sz): "name,open,prev_close,current,high,low,...";
//     the live value is field 3.
func (a *Adapter) FetchCurrent(ctx context.Context, symbol string) (pricing.PriceRecord, error) {
	id, ok := a.symbols[symbol]
	if !ok {
		return pricing.PriceRecord{}, pricing.NewUnsupportedSymbol(Name, symbol)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		Get("/list=" + id)
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, "hq request failed", err)
	}
	if !resp.IsSuccess() {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("hq returned status %d", resp.StatusCode()), nil)
	}

	m := payloadRe.FindStringSubmatch(resp.String())
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("empty hq payload for %s", id), nil)
	}
	fields := strings.Split(m[1], ",")

	value, err := extractValue(id, fields)
	if err != nil {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name, err.Error(), nil)
	}
	if !pricing.ValidPrice(value) {
		return pricing.PriceRecord{}, pricing.NewProviderUnavailable(Name,
			fmt.Sprintf("non-positive value for %s", id), nil)
	}

	return pricing.PriceRecord{Price: value, Source: Name, Timestamp: time.Now().UTC()}, nil
}

func extractValue(id string, fields []string) (float64, error) {
	if strings.HasPrefix(id, bondPrefix) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("short bond payload for %s", id)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, fmt.Errorf("unusable bond value %q for %s", fields[1], id)
		}
		// Upstream reports the yield at 10x actual; see FetchCurrent doc.
		return v / 10, nil
	}

	if len(fields) < 4 {
		return 0, fmt.Errorf("short index payload for %s", id)
	}
	v, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return 0, fmt.Errorf("unusable index value %q for %s", fields[3], id)
	}
	return v, nil
}

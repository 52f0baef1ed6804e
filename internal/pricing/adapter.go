package pricing

import (
	"context"
	"time"
)

// Adapter is the interface every upstream price source implements.
// Adapters own symbol translation, response parsing and unit
// normalization; everything upstream-specific stays behind this boundary.
type Adapter interface {
	// Name identifies the provider. It becomes the Source/provenance tag
	// on every record the resolver returns and the rate-governor key.
	Name() string

	// FetchCurrent retrieves the latest quote for a canonical symbol.
	// Returns a LookupError on any failure; never a record with Price <= 0.
	FetchCurrent(ctx context.Context, symbol string) (PriceRecord, error)
}

// HistoricalAdapter is implemented by adapters whose upstream can answer
// date-keyed lookups. Adapters without history support implement only
// Adapter and are skipped by the resolver for historical queries.
type HistoricalAdapter interface {
	Adapter

	// FetchHistorical retrieves the closing quote for a past UTC calendar
	// date. A confirmed "no trading data for this date" outcome is
	// reported as Exists=false, not as an error.
	FetchHistorical(ctx context.Context, symbol string, date time.Time) (HistoricalPriceRecord, error)
}

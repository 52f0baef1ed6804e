package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pricefeed/internal/pricing"
	"pricefeed/internal/quote"
)

// Lookup is one watchlist entry to resolve.
type Lookup struct {
	AssetType pricing.AssetType
	Symbol    string
}

// Result is the outcome of one lookup, sent from a worker goroutine to
// the collection loop.
type Result struct {
	Lookup Lookup
	Record pricing.PriceRecord
	Yield  *quote.YieldResult
	Err    error
}

// querier is what the coordinator needs from the price facade.
type querier interface {
	GetCurrentPrice(ctx context.Context, assetType pricing.AssetType, symbol string) (pricing.PriceRecord, error)
	Yield(ctx context.Context, assetType pricing.AssetType, symbol string, since time.Time) (quote.YieldResult, error)
}

// Coordinator fans out facade lookups for a watchlist and prints results
// as they arrive.
type Coordinator struct {
	svc     querier
	lookups []Lookup
}

// New creates a Coordinator over the given facade and watchlist.
func New(svc querier, lookups []Lookup) *Coordinator {
	return &Coordinator{svc: svc, lookups: lookups}
}

// Run resolves every lookup concurrently and prints spot prices with
// provenance. Each lookup runs in its own goroutine; the shared governor
// and cache inside the facade are the only cross-request state.
func (c *Coordinator) Run(ctx context.Context) error {
	return c.run(ctx, func(l Lookup) Result {
		rec, err := c.svc.GetCurrentPrice(ctx, l.AssetType, l.Symbol)
		return Result{Lookup: l, Record: rec, Err: err}
	})
}

// RunYield resolves every lookup concurrently and prints the percentage
// return since the given date.
func (c *Coordinator) RunYield(ctx context.Context, since time.Time) error {
	return c.run(ctx, func(l Lookup) Result {
		y, err := c.svc.Yield(ctx, l.AssetType, l.Symbol, since)
		return Result{Lookup: l, Yield: &y, Err: err}
	})
}

func (c *Coordinator) run(ctx context.Context, do func(Lookup) Result) error {
	if len(c.lookups) == 0 {
		return fmt.Errorf("no lookups configured")
	}

	resultChan := make(chan Result, len(c.lookups))
	var wg sync.WaitGroup

	for _, l := range c.lookups {
		wg.Add(1)
		go func(l Lookup) {
			defer wg.Done()
			resultChan <- do(l)
		}(l)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		printResult(result)
	}
	return nil
}

func printResult(r Result) {
	name := fmt.Sprintf("%s/%s", r.Lookup.AssetType, r.Lookup.Symbol)
	switch {
	case r.Err != nil:
		fmt.Printf("%s: ERROR - %v\n", name, r.Err)
	case r.Yield != nil:
		if !r.Yield.From.Exists {
			fmt.Printf("%s: no trading data on %s\n", name, pricing.DateKey(r.Yield.From.Date))
			return
		}
		fmt.Printf("%s: %+.2f%% since %s (%.2f -> %.2f, via %s)\n",
			name, r.Yield.Percent, pricing.DateKey(r.Yield.From.Date),
			r.Yield.From.Price, r.Yield.To.Price, r.Yield.To.Source)
	default:
		fmt.Printf("%s: %.2f (%s)\n", name, r.Record.Price, r.Record.Source)
	}
}

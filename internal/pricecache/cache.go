// Package pricecache memoizes resolved prices so repeated lookups for the
// same asset and day never re-hit an upstream provider.
package pricecache

import (
	"sync"
	"time"

	"pricefeed/internal/pricing"
)

// key addresses one cache slot: (assetType, symbol, "current"|ISO-date).
type key struct {
	assetType pricing.AssetType
	symbol    string
	date      string
}

const currentMarker = "current"

type entry struct {
	current    pricing.PriceRecord
	historical pricing.HistoricalPriceRecord
	cachedAt   time.Time
}

// Cache is a process-lifetime, in-memory result cache.
//
// Current-price entries go stale when the UTC calendar day rolls over, not
// after a fixed TTL. Historical entries with Exists=true never go stale.
// Historical entries with Exists=false are stored but always reported as
// a miss, since a provider may backfill data for the date later.
//
// Concurrent lookups for the same missing key are not deduplicated;
// duplicate in-flight fetches are tolerated.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]entry
	now     func() time.Time
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[key]entry),
		now:     time.Now,
	}
}

// GetCurrent returns the cached current price for (assetType, symbol) if
// one was stored today (UTC).
func (c *Cache) GetCurrent(assetType pricing.AssetType, symbol string) (pricing.PriceRecord, bool) {
	c.mu.RLock()
	e, ok := c.entries[key{assetType, symbol, currentMarker}]
	c.mu.RUnlock()
	if !ok {
		return pricing.PriceRecord{}, false
	}
	if pricing.DateKey(e.cachedAt) != pricing.DateKey(c.now()) {
		// A new UTC day invalidates yesterday's quote.
		return pricing.PriceRecord{}, false
	}
	return e.current, true
}

// PutCurrent stores a freshly resolved current price.
func (c *Cache) PutCurrent(assetType pricing.AssetType, symbol string, rec pricing.PriceRecord) {
	c.mu.Lock()
	c.entries[key{assetType, symbol, currentMarker}] = entry{current: rec, cachedAt: c.now()}
	c.mu.Unlock()
}

// GetHistorical returns the cached record for (assetType, symbol, date).
// Exists=false entries are reported as a miss so callers retry upstream.
func (c *Cache) GetHistorical(assetType pricing.AssetType, symbol string, date time.Time) (pricing.HistoricalPriceRecord, bool) {
	c.mu.RLock()
	e, ok := c.entries[key{assetType, symbol, pricing.DateKey(date)}]
	c.mu.RUnlock()
	if !ok || !e.historical.Exists {
		return pricing.HistoricalPriceRecord{}, false
	}
	return e.historical, true
}

// PutHistorical stores a resolved historical record. History is immutable,
// so Exists=true entries are kept for the life of the process.
func (c *Cache) PutHistorical(assetType pricing.AssetType, symbol string, rec pricing.HistoricalPriceRecord) {
	c.mu.Lock()
	c.entries[key{assetType, symbol, pricing.DateKey(rec.Date)}] = entry{historical: rec, cachedAt: c.now()}
	c.mu.Unlock()
}

// Len reports how many entries are stored, stale or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package pricing

import "time"

// AssetType selects which provider chain answers a lookup.
type AssetType string

const (
	AssetCrypto   AssetType = "crypto"
	AssetStock    AssetType = "stock"
	AssetIndex    AssetType = "index"
	AssetDomestic AssetType = "domestic"
)

// ParseAssetType validates a user-supplied asset type string.
func ParseAssetType(s string) (AssetType, bool) {
	switch AssetType(s) {
	case AssetCrypto, AssetStock, AssetIndex, AssetDomestic:
		return AssetType(s), true
	}
	return "", false
}

// PriceRecord is the normalized shape every adapter returns for a
// current-price lookup. Price is always > 0; a provider that cannot
// produce a positive finite number fails instead. Immutable once created.
type PriceRecord struct {
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoricalPriceRecord is the normalized shape for a date-keyed lookup.
// Exists=false means the provider affirmatively confirmed there is no
// trading data for that date (weekend, holiday), a distinct outcome from
// the provider being unreachable.
type HistoricalPriceRecord struct {
	Price  float64   `json:"price"`
	Date   time.Time `json:"date"`
	Source string    `json:"source"`
	Exists bool      `json:"exists"`
}

// DateKey renders a lookup date as the UTC calendar day used in cache keys
// and provider queries.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

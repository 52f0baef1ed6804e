package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RateLimit is the sliding-window budget for one provider key.
type RateLimit struct {
	MaxRequests int `mapstructure:"max_requests"`
	WindowMs    int `mapstructure:"window_ms"`
}

// Feed is one announcement feed to proxy.
type Feed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// WatchItem is one asset the CLI fan-out fetches by default.
type WatchItem struct {
	Type   string `mapstructure:"type"`
	Symbol string `mapstructure:"symbol"`
}

// Config holds all configuration for the pricefeed application. Symbol and
// rate-limit tables are read-only at runtime; changing them means
// redeploying configuration.
type Config struct {
	// HTTP API server
	ServerPort        int `mapstructure:"server_port"`
	RequestTimeoutSec int `mapstructure:"request_timeout_sec"`

	// Process-wide outbound ceiling across all providers (0 disables)
	GlobalRequestsPerSec float64 `mapstructure:"global_requests_per_sec"`
	GlobalBurst          int     `mapstructure:"global_burst"`

	// Base URLs for upstream endpoints (configurable for testing)
	BinanceBaseURL   string `mapstructure:"binance_base_url"`
	OKXBaseURL       string `mapstructure:"okx_base_url"`
	CoingeckoBaseURL string `mapstructure:"coingecko_base_url"`
	YahooBaseURL     string `mapstructure:"yahoo_base_url"`
	StooqBaseURL     string `mapstructure:"stooq_base_url"`
	SinaBaseURL      string `mapstructure:"sina_base_url"`

	// Symbols maps asset type -> canonical symbol -> provider -> id.
	Symbols map[string]map[string]map[string]string `mapstructure:"symbols"`

	// RateLimits maps a provider key to its admission budget.
	RateLimits map[string]RateLimit `mapstructure:"rate_limits"`

	// FeedLimit is the per-feed admission budget.
	FeedLimit RateLimit `mapstructure:"feed_limit"`

	Feeds     []Feed      `mapstructure:"feeds"`
	Watchlist []WatchItem `mapstructure:"watchlist"`
}

// Load reads configuration from defaults, an optional config.yaml and
// environment variables. Environment variables take precedence.
//
// Expected environment variables (all optional):
//   - PRICEFEED_SERVER_PORT
//   - BINANCE_BASE_URL, OKX_BASE_URL, COINGECKO_BASE_URL,
//     YAHOO_BASE_URL, STOOQ_BASE_URL, SINA_BASE_URL
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("server_port", 8080)
	v.SetDefault("request_timeout_sec", 15)
	v.SetDefault("global_requests_per_sec", 8.0)
	v.SetDefault("global_burst", 4)

	v.SetDefault("binance_base_url", "https://api.binance.com")
	v.SetDefault("okx_base_url", "https://www.okx.com")
	v.SetDefault("coingecko_base_url", "https://api.coingecko.com")
	v.SetDefault("yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("stooq_base_url", "https://stooq.com")
	v.SetDefault("sina_base_url", "https://hq.sinajs.cn")

	// Provider priority within each asset type is fixed in the resolver;
	// these tables only translate canonical symbols per provider.
	v.SetDefault("symbols", map[string]any{
		"crypto": map[string]any{
			"BTC": map[string]string{"binance": "BTCUSDT", "okx": "BTC-USDT", "coingecko": "bitcoin"},
			"ETH": map[string]string{"binance": "ETHUSDT", "okx": "ETH-USDT", "coingecko": "ethereum"},
			"SOL": map[string]string{"binance": "SOLUSDT", "okx": "SOL-USDT", "coingecko": "solana"},
		},
		"stock": map[string]any{
			"AAPL": map[string]string{"yahoo": "AAPL", "stooq": "aapl.us"},
			"MSFT": map[string]string{"yahoo": "MSFT", "stooq": "msft.us"},
			"TSLA": map[string]string{"yahoo": "TSLA", "stooq": "tsla.us"},
		},
		"index": map[string]any{
			"SPX":    map[string]string{"yahoo": "^GSPC", "stooq": "^spx"},
			"NDX":    map[string]string{"yahoo": "^NDX", "stooq": "^ndx"},
			"CSI300": map[string]string{"yahoo": "000300.SS"},
		},
		"domestic": map[string]any{
			"SSE":   map[string]string{"sina": "sh000001"},
			"CN10Y": map[string]string{"sina": "globalbd_gcny10"},
		},
	})

	v.SetDefault("rate_limits", map[string]any{
		"binance":   map[string]int{"max_requests": 10, "window_ms": 1000},
		"okx":       map[string]int{"max_requests": 10, "window_ms": 1000},
		"coingecko": map[string]int{"max_requests": 5, "window_ms": 60000},
		"yahoo":     map[string]int{"max_requests": 5, "window_ms": 1000},
		"stooq":     map[string]int{"max_requests": 2, "window_ms": 1000},
		"sina":      map[string]int{"max_requests": 5, "window_ms": 1000},
	})
	v.SetDefault("feed_limit", map[string]int{"max_requests": 2, "window_ms": 60000})

	v.SetDefault("feeds", []map[string]string{
		{"name": "binance", "url": "https://www.binance.com/en/support/announcement/rss"},
		{"name": "okx", "url": "https://www.okx.com/help/rss"},
	})

	v.SetDefault("watchlist", []map[string]string{
		{"type": "crypto", "symbol": "BTC"},
		{"type": "crypto", "symbol": "ETH"},
		{"type": "index", "symbol": "SPX"},
		{"type": "domestic", "symbol": "CN10Y"},
	})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.pricefeed")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	v.BindEnv("server_port", "PRICEFEED_SERVER_PORT")
	v.BindEnv("binance_base_url", "BINANCE_BASE_URL")
	v.BindEnv("okx_base_url", "OKX_BASE_URL")
	v.BindEnv("coingecko_base_url", "COINGECKO_BASE_URL")
	v.BindEnv("yahoo_base_url", "YAHOO_BASE_URL")
	v.BindEnv("stooq_base_url", "STOOQ_BASE_URL")
	v.BindEnv("sina_base_url", "SINA_BASE_URL")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port %d", c.ServerPort)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("no symbol tables configured")
	}
	for _, w := range c.Watchlist {
		table, ok := c.Symbols[w.Type]
		if !ok {
			return fmt.Errorf("watchlist entry %s/%s: unknown asset type", w.Type, w.Symbol)
		}
		if _, ok := table[w.Symbol]; !ok {
			return fmt.Errorf("watchlist entry %s/%s: symbol not configured", w.Type, w.Symbol)
		}
	}
	return nil
}

// ProviderSymbols flattens the symbol tables into one canonical->id map
// for a single provider, across all asset types it serves.
func (c *Config) ProviderSymbols(provider string) map[string]string {
	out := make(map[string]string)
	for _, byType := range c.Symbols {
		for canonical, ids := range byType {
			if id, ok := ids[provider]; ok {
				out[canonical] = id
			}
		}
	}
	return out
}

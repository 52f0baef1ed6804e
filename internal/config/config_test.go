package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.BinanceBaseURL != "https://api.binance.com" {
		t.Errorf("BinanceBaseURL = %q", cfg.BinanceBaseURL)
	}
	if cfg.GlobalRequestsPerSec <= 0 {
		t.Errorf("GlobalRequestsPerSec = %v, want > 0", cfg.GlobalRequestsPerSec)
	}

	if got := cfg.Symbols["crypto"]["BTC"]["binance"]; got != "BTCUSDT" {
		t.Errorf("crypto/BTC/binance = %q, want BTCUSDT", got)
	}
	if got := cfg.Symbols["domestic"]["CN10Y"]["sina"]; got != "globalbd_gcny10" {
		t.Errorf("domestic/CN10Y/sina = %q, want globalbd_gcny10", got)
	}

	rl, ok := cfg.RateLimits["binance"]
	if !ok {
		t.Fatal("missing binance rate limit")
	}
	if rl.MaxRequests <= 0 || rl.WindowMs <= 0 {
		t.Errorf("binance rate limit = %+v, want positive budget", rl)
	}

	if len(cfg.Watchlist) == 0 {
		t.Error("default watchlist should not be empty")
	}
	if len(cfg.Feeds) == 0 {
		t.Error("default feed list should not be empty")
	}
}

func TestLoad_EnvOverridesBaseURL(t *testing.T) {
	t.Setenv("BINANCE_BASE_URL", "http://localhost:9999")
	t.Setenv("PRICEFEED_SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.BinanceBaseURL != "http://localhost:9999" {
		t.Errorf("BinanceBaseURL = %q, want env override", cfg.BinanceBaseURL)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
}

func TestProviderSymbols_FlattensAcrossAssetTypes(t *testing.T) {
	cfg := &Config{
		Symbols: map[string]map[string]map[string]string{
			"stock": {"AAPL": {"yahoo": "AAPL", "stooq": "aapl.us"}},
			"index": {"SPX": {"yahoo": "^GSPC"}},
		},
	}

	got := cfg.ProviderSymbols("yahoo")
	if len(got) != 2 {
		t.Fatalf("got %d symbols, want 2", len(got))
	}
	if got["AAPL"] != "AAPL" || got["SPX"] != "^GSPC" {
		t.Errorf("unexpected table: %v", got)
	}

	if got := cfg.ProviderSymbols("stooq"); len(got) != 1 {
		t.Errorf("stooq table = %v, want only aapl.us", got)
	}
}

func TestValidate_RejectsUnknownWatchlistEntries(t *testing.T) {
	cfg := &Config{
		ServerPort: 8080,
		Symbols: map[string]map[string]map[string]string{
			"crypto": {"BTC": {"binance": "BTCUSDT"}},
		},
		Watchlist: []WatchItem{{Type: "crypto", Symbol: "DOGE"}},
	}
	if err := cfg.validate(); err == nil {
		t.Error("expected error for watchlist symbol missing from tables")
	}

	cfg.Watchlist = []WatchItem{{Type: "bond", Symbol: "BTC"}}
	if err := cfg.validate(); err == nil {
		t.Error("expected error for unknown watchlist asset type")
	}

	cfg.Watchlist = []WatchItem{{Type: "crypto", Symbol: "BTC"}}
	if err := cfg.validate(); err != nil {
		t.Errorf("valid watchlist rejected: %v", err)
	}
}

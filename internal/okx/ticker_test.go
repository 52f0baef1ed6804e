package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pricefeed/internal/pricing"
)

var testSymbols = map[string]string{"BTC": "BTC-USDT"}

func TestFetchCurrent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("instId"); got != "BTC-USDT" {
			t.Errorf("instId = %q, want BTC-USDT", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT","last":"64950.5"}]}`))
	}))
	defer server.Close()

	adapter := New(testSymbols, server.URL)
	rec, err := adapter.FetchCurrent(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("FetchCurrent() returned unexpected error: %v", err)
	}
	if rec.Price != 64950.5 {
		t.Errorf("Price = %v, want 64950.5", rec.Price)
	}
	if rec.Source != Name {
		t.Errorf("Source = %q, want %q", rec.Source, Name)
	}
}

func TestFetchCurrent_ErrorCodeOn200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	}))
	defer server.Close()

	adapter := New(testSymbols, server.URL)
	_, err := adapter.FetchCurrent(context.Background(), "BTC")
	if !pricing.IsKind(err, pricing.KindProviderUnavailable) {
		t.Errorf("expected provider_unavailable error, got %v", err)
	}
}

func TestFetchHistorical_Success(t *testing.T) {
	// Candle timestamped at the requested day's UTC midnight.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"0","msg":"","data":[["1704412800000","42850","43500","42500","43288.95","1000","1","1","1"]]}`))
	}))
	defer server.Close()

	adapter := New(testSymbols, server.URL)
	rec, err := adapter.FetchHistorical(context.Background(), "BTC",
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchHistorical() returned unexpected error: %v", err)
	}
	if !rec.Exists || rec.Price != 43288.95 {
		t.Errorf("got %+v, want Exists=true Price=43288.95", rec)
	}
}

func TestFetchHistorical_CandleFromEarlierDay(t *testing.T) {
	// Newest candle before "after" belongs to 2024-01-05, but 2024-02-01
	// was requested: confirmed no data for the requested day.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"0","msg":"","data":[["1704412800000","42850","43500","42500","43288.95","1000","1","1","1"]]}`))
	}))
	defer server.Close()

	adapter := New(testSymbols, server.URL)
	rec, err := adapter.FetchHistorical(context.Background(), "BTC",
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchHistorical() returned unexpected error: %v", err)
	}
	if rec.Exists {
		t.Error("Exists = true, want false when the candle is from another day")
	}
}

func TestFetchHistorical_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"0","msg":"","data":[]}`))
	}))
	defer server.Close()

	adapter := New(testSymbols, server.URL)
	rec, err := adapter.FetchHistorical(context.Background(), "BTC",
		time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchHistorical() returned unexpected error: %v", err)
	}
	if rec.Exists {
		t.Error("Exists = true, want false for an empty candle list")
	}
}

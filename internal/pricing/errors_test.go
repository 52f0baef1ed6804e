package pricing

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestValidPrice(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  bool
	}{
		{"positive", 65000.0, true},
		{"small positive", 0.00000001, true},
		{"zero", 0, false},
		{"negative", -1.5, false},
		{"NaN", math.NaN(), false},
		{"+Inf", math.Inf(1), false},
		{"-Inf", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidPrice(tt.value); got != tt.want {
				t.Errorf("ValidPrice(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	err := NewProviderUnavailable("binance", "timeout", nil)

	if !IsKind(err, KindProviderUnavailable) {
		t.Error("expected provider_unavailable kind")
	}
	if IsKind(err, KindRateLimited) {
		t.Error("kind must not match rate_limited")
	}
	if IsKind(errors.New("plain"), KindProviderUnavailable) {
		t.Error("plain errors have no kind")
	}
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	inner := NewRateLimited("yahoo")
	wrapped := fmt.Errorf("resolving SPX: %w", inner)

	if !IsKind(wrapped, KindRateLimited) {
		t.Error("IsKind should see through fmt.Errorf wrapping")
	}
}

func TestLookupError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewProviderUnavailable("okx", "ticker request failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestLookupError_Message(t *testing.T) {
	err := NewAllProvidersUnavailable(AssetIndex, "SPX", nil)
	want := "all_providers_unavailable: no provider could answer index/SPX"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDateKey(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, 1, 5, 23, 30, 0, 0, loc)
	if got := DateKey(ts); got != "2024-01-06" {
		t.Errorf("DateKey = %q, want 2024-01-06", got)
	}
}

package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrorKind represents the category of failure a lookup can end in
type ErrorKind string

const (
	// KindProviderUnavailable indicates a single adapter failed (timeout,
	// non-2xx, unparseable body, non-positive price)
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	// KindRateLimited indicates the rate governor declined admission for
	// an adapter and the bounded retry was exhausted
	KindRateLimited ErrorKind = "rate_limited"
	// KindUnsupportedSymbol indicates the adapter has no provider-specific
	// identifier configured for the requested symbol
	KindUnsupportedSymbol ErrorKind = "unsupported_symbol"
	// KindAllProvidersUnavailable indicates every configured adapter for
	// the asset type was exhausted without a result
	KindAllProvidersUnavailable ErrorKind = "all_providers_unavailable"
)

// LookupError is the structured error returned by adapters and the
// resolver. Callers always see a typed error, never a raw panic or an
// unclassified failure.
type LookupError struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Cause    error
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *LookupError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a LookupError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *LookupError
	return errors.As(err, &le) && le.Kind == kind
}

// NewProviderUnavailable wraps a single-adapter failure.
func NewProviderUnavailable(provider, message string, cause error) *LookupError {
	return &LookupError{
		Kind:     KindProviderUnavailable,
		Provider: provider,
		Message:  message,
		Cause:    cause,
	}
}

// NewRateLimited reports that admission for an adapter was declined past
// the bounded retry.
func NewRateLimited(provider string) *LookupError {
	return &LookupError{
		Kind:     KindRateLimited,
		Provider: provider,
		Message:  "rate budget exhausted",
	}
}

// NewUnsupportedSymbol reports a symbol the adapter has no identifier for.
func NewUnsupportedSymbol(provider, symbol string) *LookupError {
	return &LookupError{
		Kind:     KindUnsupportedSymbol,
		Provider: provider,
		Message:  fmt.Sprintf("no identifier configured for symbol %q", symbol),
	}
}

// NewAllProvidersUnavailable is the terminal failure after every adapter
// in the chain has been tried.
func NewAllProvidersUnavailable(assetType AssetType, symbol string, cause error) *LookupError {
	return &LookupError{
		Kind:    KindAllProvidersUnavailable,
		Message: fmt.Sprintf("no provider could answer %s/%s", assetType, symbol),
		Cause:   cause,
	}
}

// ValidPrice reports whether an upstream value may be returned as a
// successful quote. Zero, negative, NaN and infinite values are absent
// data, never a valid price.
func ValidPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

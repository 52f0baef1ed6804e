package pricing

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// Default retry configuration for upstream calls. Retries stay inside
	// one adapter attempt; provider fallback happens above this layer.
	defaultRetryCount    = 2
	defaultRetryWaitTime = 500 * time.Millisecond
	defaultRetryMaxWait  = 3 * time.Second
)

// NewHTTPClient creates an HTTP client for a provider adapter with a
// bounded per-request timeout and retry on transient upstream failures.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	// Retry on server errors (5xx), request timeout (408) and rate limit
	// responses (429); anything else 4xx is not going to improve
	switch {
	case r.StatusCode() >= 500:
		return true
	case r.StatusCode() == 408 || r.StatusCode() == 429:
		return true
	}
	return false
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying upstream request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying upstream request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}

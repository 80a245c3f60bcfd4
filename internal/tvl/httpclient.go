package tvl

import (
	"context"
	"errors"
	"net"
	"time"

	"resty.dev/v3"
)

// userAgent identifies this tool to upstream APIs.
const userAgent = "DeFi-TVL-Tracker/1.0"

// defaultTimeout bounds a single request when the caller passes no timeout.
const defaultTimeout = 10 * time.Second

// NewHTTPClient creates the HTTP client providers use to talk to their
// upstream API. Requests are bounded by timeout; retries are the
// orchestrator's job, so the client itself performs none.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout)
}

// ClassifyTransportError maps a transport-level error (no HTTP response
// obtained) to a FetchError, distinguishing timeouts from other network
// failures.
func ClassifyTransportError(provider string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(provider, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(provider, err)
	}

	return NewNetworkError(provider, err)
}

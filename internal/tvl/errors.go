package tvl

import (
	"fmt"
	"strings"
)

// UnknownProtocolError indicates a lookup for a protocol that is not registered.
type UnknownProtocolError struct {
	Name string
}

func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown protocol %q", e.Name)
}

// UnknownProviderError indicates a lookup for a provider that is not registered.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

// DuplicateProtocolError indicates an attempt to register a protocol name twice.
type DuplicateProtocolError struct {
	Name string
}

func (e *DuplicateProtocolError) Error() string {
	return fmt.Sprintf("protocol %q is already registered", e.Name)
}

// DuplicateProviderError indicates an attempt to register a provider name twice.
type DuplicateProviderError struct {
	Name string
}

func (e *DuplicateProviderError) Error() string {
	return fmt.Sprintf("provider %q is already registered", e.Name)
}

// UnsupportedChainError indicates a chain filter outside a protocol's
// declared chain set.
type UnsupportedChainError struct {
	Protocol  string
	Chain     string
	Supported []string
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("protocol %q does not support chain %q (supported: %s)",
		e.Protocol, e.Chain, strings.Join(e.Supported, ", "))
}

// ErrorKind represents the category of failure behind a FetchError
type ErrorKind string

const (
	// ErrorKindNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	ErrorKindRateLimit ErrorKind = "rate_limit"
	// ErrorKindServer indicates a server error (HTTP 5xx)
	ErrorKindServer ErrorKind = "server"
	// ErrorKindClient indicates a client error (HTTP 4xx except 429)
	ErrorKindClient ErrorKind = "client"
	// ErrorKindValidation indicates the response was received but its content failed validation
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindTimeout indicates the request timed out
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindUnknown indicates an error of unknown kind
	ErrorKindUnknown ErrorKind = "unknown"
)

// FetchError represents a structured error from a provider fetch operation.
// Retryable tells the orchestrator whether repeating the request could help.
type FetchError struct {
	Provider   string
	Kind       ErrorKind
	Retryable  bool
	StatusCode int
	Attempts   int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		fmt.Fprintf(&b, "provider %s: ", e.Provider)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, "%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	} else {
		fmt.Fprintf(&b, "%s error: %s", e.Kind, e.Message)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " (after %d attempts)", e.Attempts)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a network error
func NewNetworkError(provider string, cause error) *FetchError {
	return &FetchError{
		Provider:  provider,
		Kind:      ErrorKindNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(provider string, statusCode int) *FetchError {
	return &FetchError{
		Provider:   provider,
		Kind:       ErrorKindRateLimit,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(provider string, statusCode int) *FetchError {
	return &FetchError{
		Provider:   provider,
		Kind:       ErrorKindServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewClientError creates a client error
func NewClientError(provider string, statusCode int, message string) *FetchError {
	return &FetchError{
		Provider:   provider,
		Kind:       ErrorKindClient,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewValidationError creates a validation error for a malformed or
// unusable response body
func NewValidationError(provider, message string) *FetchError {
	return &FetchError{
		Provider:  provider,
		Kind:      ErrorKindValidation,
		Retryable: false,
		Message:   message,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(provider string, cause error) *FetchError {
	return &FetchError{
		Provider:  provider,
		Kind:      ErrorKindTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(provider string, statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(provider, statusCode)
	case statusCode >= 500:
		return NewServerError(provider, statusCode)
	case statusCode >= 400:
		return NewClientError(provider, statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Provider:   provider,
			Kind:       ErrorKindUnknown,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

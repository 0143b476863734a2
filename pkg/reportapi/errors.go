package reportapi

import (
	"fmt"
	"time"
)

// RateLimitError means the client-side limiter refused the attempt before
// any network I/O happened.
type RateLimitError struct {
	ClientID   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for client %s, retry after %s", e.ClientID, e.RetryAfter.Round(time.Millisecond))
}

// HTTPError is a non-2xx response from the reporting endpoint.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// ContentTypeError means the response succeeded at the transport level but
// is not JSON, so it must not be treated as usable data.
type ContentTypeError struct {
	URL         string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("GET %s: expected application/json, got %q", e.URL, e.ContentType)
}

// NetworkError wraps transport failures, timeouts and body read failures.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

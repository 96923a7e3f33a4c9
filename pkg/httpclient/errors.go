package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetriesExhausted indicates every attempt failed at the transport
	// level without a single completed response.
	ErrRetriesExhausted = errors.New("httpclient: retries exhausted")

	// ErrInvalidBaseURL indicates the client was constructed with an
	// unusable base URL.
	ErrInvalidBaseURL = errors.New("httpclient: invalid base URL")
)

// NetworkError carries a completed HTTP response with a non-2xx status so
// callers can inspect the status code and body.
type NetworkError struct {
	// StatusCode is the HTTP status of the failed response.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body holds the (possibly truncated) response body.
	Body []byte

	// Method and Path identify the failed request for diagnostics.
	Method string
	Path   string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("httpclient: %s %s failed with status %d", e.Method, e.Path, e.StatusCode)
}

// IsNetworkError extracts a *NetworkError from err, if any.
func IsNetworkError(err error) (*NetworkError, bool) {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// IsNotFound reports whether err is a completed 404 response.
func IsNotFound(err error) bool {
	ne, ok := IsNetworkError(err)
	return ok && ne.StatusCode == http.StatusNotFound
}

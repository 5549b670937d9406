package sse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
)

// HTTPErrorCode distinguishes the chat path's error kinds from the raw
// HTTP response status (spec.md §4.10).
type HTTPErrorCode string

const (
	CodeUnauthorized HTTPErrorCode = "UNAUTHORIZED"
	CodeRateLimited  HTTPErrorCode = "RATE_LIMITED"
	CodeAPIError     HTTPErrorCode = "API_ERROR"
	CodeNoBody       HTTPErrorCode = "NO_BODY"
	CodeNetworkError HTTPErrorCode = "NETWORK_ERROR"
	CodeTimeout      HTTPErrorCode = "TIMEOUT"
)

// HTTPError is the classified form of a chat-path request failure.
type HTTPError struct {
	Code       HTTPErrorCode
	StatusCode int
	RetryAfter int
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("chat stream error: %s", e.Code)
	}
	return fmt.Sprintf("chat stream error: %s (http %d)", e.Code, e.StatusCode)
}

// ClassifyError maps a request's outcome into the chat path's error
// taxonomy. Pass the error from http.Client.Do and the *http.Response (nil
// if the request itself failed). A context.Canceled error (user-initiated
// cancellation) is deliberately not surfaced as an error: it returns nil.
func ClassifyError(ctx context.Context, resp *http.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &HTTPError{Code: CodeTimeout}
		}
		return &HTTPError{Code: CodeNetworkError}
	}

	if resp == nil || resp.Body == nil {
		return &HTTPError{Code: CodeNoBody}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &HTTPError{Code: CodeUnauthorized, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &HTTPError{Code: CodeRateLimited, StatusCode: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &HTTPError{Code: CodeAPIError, StatusCode: resp.StatusCode}
	default:
		return nil
	}
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	n, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return n
}

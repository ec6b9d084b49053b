package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ServiceError is a terminal remote-call failure: an unrecoverable condition,
// or retries exhausted. StatusCode is 0 for transport-level failures.
type ServiceError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote service error (status %d): %s", e.StatusCode, e.Message)
	}
	return "remote service error: " + e.Message
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// retryableStatuses are the HTTP statuses treated as transient
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// retryable classifies a call failure. Rate limits, retryable server
// statuses, per-attempt timeouts and transient network errors are worth
// another attempt; everything else (auth, malformed request) is terminal.
func retryable(err error) bool {
	if code := statusCode(err); code != 0 {
		return retryableStatuses[code]
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return isTransientNetworkError(err)
}

// statusCode extracts the HTTP status from a call failure, 0 if none
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// isTransientNetworkError checks error text for transient network failures
func isTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "eof")
}

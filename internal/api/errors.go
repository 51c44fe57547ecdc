package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NetworkError indicates the request never reached the server or timed out.
// Surfaced to users as a "check your connection" condition; the client does
// not auto-retry.
type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Errorf("network: %w", e.Err).Error()
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// AuthError indicates a 401 or 403 response. On 401 the stored session has
// already been cleared by the time the caller sees this error.
type AuthError struct {
	Status  int
	Message string
}

func (e AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("auth: status %d", e.Status)
}

// APIError is any other non-2xx backend response, carrying the backend's
// message when one was present.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// ErrorCategory labels an error for logging and metrics.
func ErrorCategory(err error) string {
	if err == nil {
		return "none"
	}
	var netErr NetworkError
	if errors.As(err, &netErr) {
		return "network"
	}
	var authErr AuthError
	if errors.As(err, &authErr) {
		return "auth"
	}
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return "api"
	}
	return "other"
}

// classifyTransport wraps transport-level failures as NetworkError and leaves
// everything else untouched.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkError{Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return NetworkError{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NetworkError{Err: err}
	}
	// http.Client wraps everything in *url.Error; treat any failure to get a
	// response as a connectivity problem unless the context was cancelled.
	if errors.Is(err, context.Canceled) {
		return err
	}
	return NetworkError{Err: err}
}

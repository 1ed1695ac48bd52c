package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrViewNotFound is returned by a ViewDriver when the message pane
	// cannot be located at all
	ErrViewNotFound = errors.New("message pane not found")

	// ErrEmptyResult is returned when there is nothing to export
	ErrEmptyResult = errors.New("no messages were collected")
)

// RateLimitedCode is the API error code that triggers a backoff and retry
const RateLimitedCode = "ratelimited"

// APIError represents an API-level failure reported by the history API
type APIError struct {
	Method string
	Code   string
	Status int
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api error [%s] %s (status %d)", e.Method, e.Code, e.Status)
	}
	return fmt.Sprintf("api error [%s] %s", e.Method, e.Code)
}

// IsRateLimited reports whether err is a rate-limit signal from the history API
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == RateLimitedCode
	}
	return false
}

// ViewError represents a failure talking to the live view
type ViewError struct {
	Op  string // "stimulate", "read", "marker"
	Err error
}

func (e *ViewError) Error() string {
	return fmt.Sprintf("view error: %s: %v", e.Op, e.Err)
}

func (e *ViewError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration file or value
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

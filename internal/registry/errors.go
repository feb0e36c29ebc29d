package registry

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for registry calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the registry took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the registry returned invalid/malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the registry is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorNotFound indicates the requested record doesn't exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorBlocked indicates an anti-automation challenge. It is never a denial.
	ErrorBlocked ErrorCategory = "blocked"

	// ErrorNotConfigured indicates missing credentials or endpoint
	ErrorNotConfigured ErrorCategory = "not_configured"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps registry failures with normalized categorization.
type Error struct {
	Category   ErrorCategory `json:"category"`
	Source     Source        `json:"source"`
	Message    string        `json:"message"`
	Retryable  bool          `json:"retryable"`
	Underlying error         `json:"-"`
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registry %s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registry %s [%s]: %s", e.Source, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized registry error.
func NewError(category ErrorCategory, source Source, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &Error{
		Category:   category,
		Source:     source,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}

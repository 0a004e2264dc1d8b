package apierror

import (
	"errors"
	"fmt"
)

type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so a copy carrying Details still satisfies errors.Is
// against the package-level sentinel it was derived from.
func (e *APIError) Is(target error) bool {
	var other *APIError
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy of e annotated with details.
func (e *APIError) WithDetails(details string) *APIError {
	clone := *e
	clone.Details = details
	return &clone
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

package model

import (
	"errors"
	"net/http"

	"leetcode-tracker/pkg/apierror"
)

var (
	// Registration
	ErrInvalidEmail    = apierror.New("INVALID_EMAIL", "Invalid email format", "", http.StatusBadRequest)
	ErrWeakPassword    = apierror.New("WEAK_PASSWORD", "Password must be at least 8 characters", "", http.StatusBadRequest)
	ErrPasswordTooLong = apierror.New("PASSWORD_TOO_LONG", "Password must be at most 72 bytes", "", http.StatusBadRequest)
	ErrMissingUsername = apierror.New("MISSING_USERNAME", "Username is required", "", http.StatusBadRequest)
	ErrEmailTaken      = apierror.New("EMAIL_TAKEN", "Email already registered", "", http.StatusConflict)

	// Login
	ErrMissingCredentials = apierror.New("MISSING_CREDENTIALS", "Email and password are required", "", http.StatusBadRequest)
	ErrInvalidCredentials = apierror.New("INVALID_CREDENTIALS", "Invalid email or password", "", http.StatusUnauthorized)
	ErrInvalidPassword    = apierror.New("INVALID_PASSWORD", "Current password is incorrect", "", http.StatusUnauthorized)

	// Tokens and gates
	ErrInvalidToken           = apierror.New("INVALID_TOKEN", "Authentication token is invalid", "", http.StatusUnauthorized)
	ErrTokenExpired           = apierror.New("TOKEN_EXPIRED", "Your session has expired. Please log in again.", "", http.StatusUnauthorized)
	ErrTokenRevoked           = apierror.New("TOKEN_REVOKED", "Authentication token has been revoked", "", http.StatusUnauthorized)
	ErrAuthenticationRequired = apierror.New("AUTHENTICATION_REQUIRED", "No token provided", "", http.StatusUnauthorized)
	ErrAuthenticationFailed   = apierror.New("AUTHENTICATION_FAILED", "Authentication failed", "", http.StatusUnauthorized)

	// Generic
	ErrUserNotFound     = apierror.New("USER_NOT_FOUND", "User not found", "", http.StatusNotFound)
	ErrRouteNotFound    = apierror.New("NOT_FOUND", "Route not found", "", http.StatusNotFound)
	ErrMethodNotAllowed = apierror.New("METHOD_NOT_ALLOWED", "Method not allowed", "", http.StatusMethodNotAllowed)
	ErrBadRequest       = apierror.New("BAD_REQUEST", "Invalid request body", "", http.StatusBadRequest)

	// ErrConfiguration is a deployment precondition failure. It is returned at
	// startup and never rendered to a client.
	ErrConfiguration = errors.New("configuration error")
)

package oauth

import "net/http"

// Error is the RFC 6749 §5.2 protocol error envelope: a machine-readable
// code plus a human description, carrying the HTTP status it should be
// rendered with (spec §7).
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Status      int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

func newError(code string, status int, description string) *Error {
	return &Error{Code: code, Description: description, Status: status}
}

func ErrInvalidRequest(description string) *Error {
	return newError("invalid_request", http.StatusBadRequest, description)
}

func ErrInvalidClient(description string) *Error {
	return newError("invalid_client", http.StatusUnauthorized, description)
}

func ErrInvalidGrant(description string) *Error {
	return newError("invalid_grant", http.StatusBadRequest, description)
}

func ErrInvalidScope(description string) *Error {
	return newError("invalid_scope", http.StatusBadRequest, description)
}

func ErrUnsupportedGrantType(description string) *Error {
	return newError("unsupported_grant_type", http.StatusBadRequest, description)
}

func ErrAccessDenied(description string) *Error {
	return newError("access_denied", http.StatusForbidden, description)
}

func ErrServerError(description string) *Error {
	return newError("server_error", http.StatusInternalServerError, description)
}

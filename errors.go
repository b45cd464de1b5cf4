package handleAuth

import (
	"errors"
	"net/http"
)

// ErrorCode is the stable machine-readable identifier of an Error.
type ErrorCode string

const (
	CodeInvalidCredentials        ErrorCode = "AUTH_INVALID_CREDENTIALS"
	CodeNoAuthorizationInHeader   ErrorCode = "AUTH_NO_AUTHORIZATION_IN_HEADER"
	CodeAuthorizationTokenInvalid ErrorCode = "AUTH_AUTHORIZATION_TOKEN_INVALID"
	CodeAuthorizationTokenExpired ErrorCode = "AUTH_AUTHORIZATION_TOKEN_EXPIRED"
	CodePrincipalNotFound         ErrorCode = "AUTH_PRINCIPAL_NOT_FOUND"
	CodeTenantInvalid             ErrorCode = "AUTH_TENANT_INVALID"
	CodeSignInRateLimited         ErrorCode = "AUTH_SIGN_IN_RATE_LIMITED"
	CodeRequestInvalid            ErrorCode = "REQUEST_INVALID"
	CodeStoreUnavailable          ErrorCode = "STORE_UNAVAILABLE"
	CodeEngineNotReady            ErrorCode = "ENGINE_NOT_READY"
	CodeInternal                  ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed failure returned by every Engine operation. It carries
// the HTTP status it should be rendered with. Two Errors match under
// errors.Is when their codes are equal, so callers compare against the
// exported sentinels regardless of the wrapped cause.
type Error struct {
	Code       ErrorCode
	StatusCode int
	Message    string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// StatusText is the HTTP reason phrase for StatusCode.
func (e *Error) StatusText() string { return http.StatusText(e.StatusCode) }

// withCause returns a copy of e wrapping cause. Sentinels are never mutated.
func (e *Error) withCause(cause error) *Error {
	out := *e
	out.cause = cause
	return &out
}

func newError(code ErrorCode, status int, msg string) *Error {
	return &Error{Code: code, StatusCode: status, Message: msg}
}

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = newError(CodeInvalidCredentials, http.StatusUnauthorized, "Invalid credentials.")
	// ErrNoAuthorizationInHeader is returned when no Authorization header was sent.
	ErrNoAuthorizationInHeader = newError(CodeNoAuthorizationInHeader, http.StatusUnauthorized, "No Authorization was found in request.headers")
	// ErrAuthorizationTokenInvalid is returned for malformed handles and tokens that fail verification.
	ErrAuthorizationTokenInvalid = newError(CodeAuthorizationTokenInvalid, http.StatusUnauthorized, "Authorization token is invalid")
	// ErrAuthorizationTokenExpired is returned when the token record is missing or the JWT expired.
	ErrAuthorizationTokenExpired = newError(CodeAuthorizationTokenExpired, http.StatusUnauthorized, "Authorization token expired")
	// ErrPrincipalNotFound is returned when an authenticated principal no longer exists.
	ErrPrincipalNotFound = newError(CodePrincipalNotFound, http.StatusNotFound, "Principal not found.")
	// ErrTenantInvalid is returned when a tenant id is missing, malformed or not allowed for the role.
	ErrTenantInvalid = newError(CodeTenantInvalid, http.StatusBadRequest, "Tenant id is invalid.")
	// ErrSignInRateLimited is returned when the sign-in throttle rejects an attempt.
	ErrSignInRateLimited = newError(CodeSignInRateLimited, http.StatusTooManyRequests, "Too many sign-in attempts.")
	// ErrRequestInvalid is returned for malformed request input.
	ErrRequestInvalid = newError(CodeRequestInvalid, http.StatusBadRequest, "Request is invalid.")
	// ErrStoreUnavailable is returned when the key-value store or identity backend fails.
	ErrStoreUnavailable = newError(CodeStoreUnavailable, http.StatusInternalServerError, "something went wrong.")
	// ErrEngineNotReady is returned when an Engine was not built through Builder.
	ErrEngineNotReady = newError(CodeEngineNotReady, http.StatusInternalServerError, "engine not initialized")
	// ErrInternal is returned for failures that have no more specific code.
	ErrInternal = newError(CodeInternal, http.StatusInternalServerError, "something went wrong.")
)

// AsError converts err into an *Error, mapping untyped errors to ErrInternal.
// It returns nil for a nil err.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.withCause(err)
}

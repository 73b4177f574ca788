package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error independently of its HTTP status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindInvalidCredentials
	KindNotVerified
	KindMissingToken
	KindInvalidToken
	KindExpiredToken
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindNotVerified:
		return "not_verified"
	case KindMissingToken:
		return "missing_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindExpiredToken:
		return "expired_token"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every Service operation. Status and Message are safe
// to show to clients; Err holds the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code and Message, so a copy carrying a cause still compares
// equal to its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func newError(kind Kind, status int, code, message string) *Error {
	return &Error{Kind: kind, Status: status, Code: code, Message: message}
}

// Error codes
const (
	CodeErrorMissingFields           = "err_missing_fields"
	CodeErrorInvalidEmail            = "err_invalid_email"
	CodeErrorPasswordComplexity      = "err_password_complexity"
	CodeErrorEmailConflict           = "err_email_conflict"
	CodeErrorInvalidVerification     = "err_invalid_verification_token"
	CodeErrorInvalidCredentials      = "err_invalid_credentials"
	CodeErrorNotVerified             = "err_not_verified"
	CodeErrorMissingRefreshToken     = "err_missing_refresh_token"
	CodeErrorInvalidRefreshToken     = "err_invalid_refresh_token"
	CodeErrorRefreshTokenExpired     = "err_refresh_token_expired"
	CodeErrorUserNotFound            = "err_user_not_found"
	CodeErrorCurrentPassword         = "err_current_password_incorrect"
	CodeErrorPasswordIncorrect       = "err_password_incorrect"
	CodeErrorInvalidAccessToken      = "err_invalid_token"
	CodeErrorAccessTokenExpired      = "err_token_expired"
	CodeErrorNoToken                 = "err_no_token"
	CodeErrorOAuth2ProfileIncomplete = "err_oauth2_profile_incomplete"
	CodeErrorInternal                = "err_internal"
)

var (
	ErrRequiredFields      = newError(KindValidation, http.StatusBadRequest, CodeErrorMissingFields, "All fields are required")
	ErrLoginRequiredFields = newError(KindValidation, http.StatusBadRequest, CodeErrorMissingFields, "Email and password are required")
	ErrPasswordsRequired   = newError(KindValidation, http.StatusBadRequest, CodeErrorMissingFields, "Both passwords are required")
	ErrPasswordRequired    = newError(KindValidation, http.StatusBadRequest, CodeErrorMissingFields, "Password is required")
	ErrFullNameRequired    = newError(KindValidation, http.StatusBadRequest, CodeErrorMissingFields, "Full name is required")
	ErrInvalidEmail        = newError(KindValidation, http.StatusBadRequest, CodeErrorInvalidEmail, "Invalid email format")
	ErrWeakPassword        = newError(KindValidation, http.StatusBadRequest, CodeErrorPasswordComplexity, "Password must be at least 6 characters with 1 uppercase, 1 lowercase, and 1 number")
	ErrEmailExists         = newError(KindConflict, http.StatusBadRequest, CodeErrorEmailConflict, "Email already exists")

	// One error for unknown, used and expired verification tokens.
	ErrInvalidOrExpiredToken = newError(KindInvalidToken, http.StatusBadRequest, CodeErrorInvalidVerification, "Invalid or expired token")

	// Unknown email and wrong password share this error.
	ErrInvalidCredentials = newError(KindInvalidCredentials, http.StatusUnauthorized, CodeErrorInvalidCredentials, "Invalid credentials")
	ErrNotVerified        = newError(KindNotVerified, http.StatusForbidden, CodeErrorNotVerified, "Email not verified. Please check your email for verification link.")

	ErrMissingRefreshToken = newError(KindMissingToken, http.StatusUnauthorized, CodeErrorMissingRefreshToken, "Refresh token is required")
	ErrInvalidRefreshToken = newError(KindInvalidToken, http.StatusForbidden, CodeErrorInvalidRefreshToken, "Invalid refresh token")
	ErrRefreshTokenExpired = newError(KindExpiredToken, http.StatusForbidden, CodeErrorRefreshTokenExpired, "Refresh token expired")

	ErrNoAccessToken      = newError(KindMissingToken, http.StatusUnauthorized, CodeErrorNoToken, "Unauthorized - No token provided")
	ErrInvalidAccessToken = newError(KindInvalidToken, http.StatusUnauthorized, CodeErrorInvalidAccessToken, "Unauthorized - Invalid token")
	ErrAccessTokenExpired = newError(KindExpiredToken, http.StatusUnauthorized, CodeErrorAccessTokenExpired, "Unauthorized - Token expired")

	ErrUserNotFound             = newError(KindNotFound, http.StatusNotFound, CodeErrorUserNotFound, "User not found")
	ErrCurrentPasswordIncorrect = newError(KindInvalidCredentials, http.StatusUnauthorized, CodeErrorCurrentPassword, "Current password is incorrect")
	ErrPasswordIncorrect        = newError(KindInvalidCredentials, http.StatusUnauthorized, CodeErrorPasswordIncorrect, "Password is incorrect")

	ErrOAuthProfileIncomplete = newError(KindValidation, http.StatusBadRequest, CodeErrorOAuth2ProfileIncomplete, "Provider did not return a usable email")

	ErrInternal = newError(KindInternal, http.StatusInternalServerError, CodeErrorInternal, "Internal Server Error")
)

// internalError wraps cause as an ErrInternal. The cause is kept for logs.
func internalError(cause error) *Error {
	e := *ErrInternal
	e.Err = cause
	return &e
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

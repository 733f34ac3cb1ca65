package apierror

import (
	"fmt"
	"net/http"
)

const (
	CodeAlreadyAuthenticated = "ALREADY_AUTHENTICATED"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeMissingToken         = "MISSING_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeTokenForbidden       = "TOKEN_FORBIDDEN"
	CodeCSRFMismatch         = "CSRF_MISMATCH"
	CodeCaptchaRejected      = "CAPTCHA_REJECTED"
	CodeSessionInvalid       = "SESSION_INVALID"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeBadRequest           = "BAD_REQUEST"
	CodeConflict             = "ALREADY_EXISTS"
	CodeRateLimited          = "RATE_LIMITED"
	CodeRequestTimeout       = "REQUEST_TIMEOUT"
	CodeInternal             = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
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

// Is matches on Code so callers can test against the constructors below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func AlreadyAuthenticated() *APIError {
	return New(CodeAlreadyAuthenticated, "You are already logged in", "", http.StatusForbidden)
}

func UserNotFound() *APIError {
	return New(CodeUserNotFound, "User not found", "", http.StatusNotFound)
}

func InvalidCredentials() *APIError {
	return New(CodeInvalidCredentials, "Invalid email or password", "", http.StatusUnauthorized)
}

func MissingToken() *APIError {
	return New(CodeMissingToken, "Refresh token is required", "", http.StatusNotFound)
}

func TokenExpired() *APIError {
	return New(CodeTokenExpired, "Refresh token is expired or invalid", "", http.StatusForbidden)
}

// TokenForbidden signals a refresh token that is validly signed but no longer
// tracked for its owner, which is what a replayed or stolen token looks like.
func TokenForbidden() *APIError {
	return New(CodeTokenForbidden, "Refresh token is not recognised", "", http.StatusForbidden)
}

func CSRFMismatch() *APIError {
	return New(CodeCSRFMismatch, "Invalid CSRF token", "", http.StatusUnauthorized)
}

func CaptchaRejected() *APIError {
	return New(CodeCaptchaRejected, "Captcha verification failed", "", http.StatusUnauthorized)
}

// SessionInvalid is reported with 500, which is what browser clients of the
// session check already expect.
func SessionInvalid() *APIError {
	return New(CodeSessionInvalid, "Session is not valid", "", http.StatusInternalServerError)
}

func Unauthorized(message string) *APIError {
	return New(CodeUnauthorized, message, "", http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return New(CodeForbidden, message, "", http.StatusForbidden)
}

func BadRequest(message string, details string) *APIError {
	return New(CodeBadRequest, message, details, http.StatusBadRequest)
}

func RateLimited() *APIError {
	return New(CodeRateLimited, "Too many requests", "", http.StatusTooManyRequests)
}

func Unexpected() *APIError {
	return New(CodeInternal, "Unexpected server error", "", http.StatusInternalServerError)
}

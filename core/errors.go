package core

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AuthErrorBadInput         = "AUTH_BAD_INPUT"
	AuthErrorTransport        = "AUTH_TRANSPORT_FAILURE"
	AuthErrorLinkExpired      = "AUTH_LINK_EXPIRED"
	AuthErrorUnauthenticated  = "AUTH_UNAUTHENTICATED"
	AuthErrorRemoteValidation = "AUTH_REMOTE_VALIDATION"
	AuthErrorInternal         = "AUTH_INTERNAL_ERROR"
)

// expiredCredentialCodes are the provider codes that always classify as an
// invalid or expired link credential.
var expiredCredentialCodes = map[string]struct{}{
	"INVALID_TOKEN":            {},
	"TOKEN_EXPIRED":            {},
	"EXPIRED_TOKEN":            {},
	"INVALID_OR_EXPIRED_TOKEN": {},
	AuthErrorLinkExpired:       {},
}

// ErrorCode extracts the rich error text code, if any.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return strings.TrimSpace(richErr.TextCode)
	}
	return ""
}

// IsExpiredCredential reports whether an error means the link token is
// invalid or expired: either an explicit provider code, or the message
// substring heuristic "expired".
func IsExpiredCredential(err error) bool {
	if err == nil {
		return false
	}
	if code := ErrorCode(err); code != "" {
		if _, ok := expiredCredentialCodes[strings.ToUpper(code)]; ok {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "expired")
}

// IsTransportFailure reports whether an error is a network/CORS-class
// failure where the remote side may or may not have processed the request.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if ErrorCode(err) == AuthErrorTransport {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUnauthorized reports whether the remote side rejected the active
// credential outright (HTTP 401 class).
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if ErrorCode(err) == AuthErrorUnauthenticated {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Code == http.StatusUnauthorized
	}
	return false
}

// NewTransportError wraps a network-level failure into the transport bucket.
func NewTransportError(err error, message string) error {
	if err == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(AuthErrorTransport)
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(AuthErrorTransport)
}

func authErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAuthErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case IsTransportFailure(err):
		return newAuthError(err.Error(), goerrors.CategoryExternal, AuthErrorTransport)
	case strings.Contains(msg, "expired"), strings.Contains(msg, "invalid token"):
		return newAuthError(err.Error(), goerrors.CategoryAuth, AuthErrorLinkExpired)
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "unauthenticated"):
		return newAuthError(err.Error(), goerrors.CategoryAuth, AuthErrorUnauthenticated)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newAuthError(err.Error(), goerrors.CategoryBadInput, AuthErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAuthErrorEnvelope(mapped)
}

func newAuthError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAuthErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureAuthErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = authHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAuthTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAuthTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return AuthErrorBadInput
	case goerrors.CategoryValidation:
		return AuthErrorRemoteValidation
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return AuthErrorUnauthenticated
	case goerrors.CategoryExternal:
		return AuthErrorTransport
	default:
		return AuthErrorInternal
	}
}

func authHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

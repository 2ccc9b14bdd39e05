package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeTokenInvalid         = "TOKEN_INVALID"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeUnauthorized         = "UNAUTHORIZED"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodeValidation           = "VALIDATION_ERROR"
	TextCodeConflict             = "CONFLICT"
	TextCodeIdentityNotFound     = "IDENTITY_NOT_FOUND"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeTooManyLoginAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
)

// ErrTokenMalformed is returned when a token cannot be decoded
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalid is returned when the signature or the claims do not verify
var ErrTokenInvalid = errors.New("token is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned once the token TTL (or refresh window) elapsed
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the only failure the guard exposes to clients
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when a verified identity has a disallowed role
var ErrForbidden = errors.New("forbidden", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrValidation is returned for malformed user input
var ErrValidation = errors.New("validation error", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrConflict is returned when a uniqueness race is lost
var ErrConflict = errors.New("conflict", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned for bad credentials
var ErrMismatchedHashAndPassword = errors.New("invalid username or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned while a user is cooling down
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyLoginAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedError will check for undecodable tokens
func IsMalformedError(err error) bool {
	return HasTextCode(err, TextCodeTokenMalformed)
}

// IsInvalidTokenError will check for tokens failing verification
func IsInvalidTokenError(err error) bool {
	return HasTextCode(err, TextCodeTokenInvalid)
}

// IsValidationError will check for input shape errors
func IsValidationError(err error) bool {
	return HasTextCode(err, TextCodeValidation)
}

// IsConflictError will check for lost uniqueness races
func IsConflictError(err error) bool {
	return HasTextCode(err, TextCodeConflict)
}

// HasTextCode reports whether err is a rich error carrying code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// ValidationFailed builds a validation error carrying per field messages
func ValidationFailed(message string, fields map[string]string) *errors.Error {
	clone := ErrValidation.Clone()
	if message != "" {
		clone.Message = message
	}
	if len(fields) > 0 {
		clone = clone.WithMetadata(map[string]any{"fields": fields})
	}
	return clone
}

// ConflictOn builds a conflict error for the given field
func ConflictOn(field, message string) *errors.Error {
	clone := ErrConflict.Clone()
	clone.Message = message
	return clone.WithMetadata(map[string]any{
		"fields": map[string]string{field: message},
	})
}

// FieldErrors extracts per field messages from a validation or conflict error
func FieldErrors(err error) map[string]string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Metadata == nil {
		return nil
	}
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	return fields
}

func tokenError(base *errors.Error, cause error) *errors.Error {
	clone := base.Clone()
	if cause != nil {
		clone.Source = cause
	}
	return clone
}

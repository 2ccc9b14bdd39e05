package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-welfare-auth"
)

func TestErrorHelpers(t *testing.T) {
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired.Clone()))
	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsInvalidTokenError(auth.ErrTokenInvalid))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenInvalid))
	assert.False(t, auth.IsTokenExpiredError(nil))
	assert.False(t, auth.IsTokenExpiredError(errors.New("token is expired")))
}

func TestValidationFailed(t *testing.T) {
	err := auth.ValidationFailed("bad input", map[string]string{"username": "too short"})

	assert.True(t, auth.IsValidationError(err))
	assert.Equal(t, "bad input", err.Message)
	assert.Equal(t, map[string]string{"username": "too short"}, auth.FieldErrors(err))

	assert.Nil(t, auth.FieldErrors(auth.ValidationFailed("", nil)))
	assert.Equal(t, "validation error", auth.ErrValidation.Message, "base error is never mutated")
}

func TestConflictOn(t *testing.T) {
	err := auth.ConflictOn("username", "username is already taken")

	assert.True(t, auth.IsConflictError(err))
	assert.Equal(t, "username is already taken", auth.FieldErrors(err)["username"])
	assert.Nil(t, auth.FieldErrors(errors.New("plain")))
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsSentinel(t *testing.T) {
	assert.True(t, Is(ErrInvalidClient, ErrInvalidCredentials))
	assert.True(t, Is(ErrUserNotFound, ErrNotFound))
	assert.True(t, Is(NotFound("role"), ErrNotFound))
	assert.True(t, Is(BadRequest("x"), ErrBadRequest))
	assert.True(t, Is(Validation("x"), ErrValidation))
	assert.False(t, Is(ErrAccountDisabled, ErrInvalidCredentials))

	wrapped := fmt.Errorf("login: %w", ErrAccountDisabled)
	assert.True(t, Is(wrapped, ErrAccountDisabled))

	var appErr *AppError
	assert.True(t, As(wrapped, &appErr))
	assert.Equal(t, 403, appErr.Code)
}

func TestCodeAndMessage(t *testing.T) {
	tests := []struct {
		err     error
		code    int
		message string
	}{
		{ErrTokenExpired, 401, "token expired"},
		{ErrScopeExceeded, 400, "requested scope exceeds grant"},
		{fmt.Errorf("wrapped: %w", ErrInsufficientPermission), 403, "no permission"},
		{NotFound("role"), 404, "role not found"},
		{Internal(stderrors.New("db down")), 500, "internal server error"},
		{stderrors.New("plain"), 500, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.code, GetCode(tt.err))
			assert.Equal(t, tt.message, GetMessage(tt.err))
		})
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[401] invalid credentials", ErrInvalidCredentials.Error())
	assert.Equal(t, "[500] internal server error: db down", Internal(stderrors.New("db down")).Error())
}

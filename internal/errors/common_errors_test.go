package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := NewTransportError("GET https://example.test", cause)

	assert.Equal(t, "[TRANSPORT] GET https://example.test: dial tcp: timeout", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "[FIELD_NOT_FOUND] openInterest not found", NewFieldNotFoundError("openInterest").Error())
}

func TestAppError_Recoverable(t *testing.T) {
	tests := []struct {
		err  *AppError
		want bool
	}{
		{NewTransportError("x", nil), true},
		{NewDecodeError("x", nil), true},
		{NewFieldNotFoundError("x"), true},
		{NewOutOfRangeError("x", 5, 10, 20), true},
		{NewStorageError("x", nil), false},
		{NewConfigError("x", nil), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Recoverable())
		})
	}
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("adapter: %w", NewOutOfRangeError("ounces", 5, 1e8, 1e9))

	assert.Equal(t, ErrTypeOutOfRange, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("plain")))
	assert.Equal(t, 5.0, NewOutOfRangeError("ounces", 5, 1e8, 1e9).Context["value"])
}

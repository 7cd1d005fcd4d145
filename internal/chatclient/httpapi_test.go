package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	whispr_errors "whispr/pkg/errors"
)

func TestErrorFromCodeRoundTrip(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"NOT_FOUND", whispr_errors.ErrNotFound},
		{"FORBIDDEN", whispr_errors.ErrForbidden},
		{"UNAUTHORIZED", whispr_errors.ErrUnauthorized},
		{"ALREADY_DELETED", whispr_errors.ErrAlreadyDeleted},
		{"VALIDATION", whispr_errors.ErrValidation},
		{"SELF_MESSAGE", whispr_errors.ErrSelfMessage},
		{"INVALID_REQUEST", whispr_errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.ErrorIs(t, errorFromCode(tt.code, ""), tt.want)
		})
	}
}

func TestErrorFromCodeUnknownCodeKeepsMessage(t *testing.T) {
	err := errorFromCode("SOMETHING_ELSE", "the server said no")
	assert.EqualError(t, err, "the server said no")

	err = errorFromCode("", "")
	assert.EqualError(t, err, "request failed")
}

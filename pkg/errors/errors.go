package whispr_errors

import "errors"

// Common errors
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("message must carry text or an image")
	ErrSelfMessage    = errors.New("cannot send a message to yourself")
	ErrAlreadyDeleted = errors.New("message already deleted for this user")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyExists  = errors.New("already exists")
	ErrTooLarge       = errors.New("file too large")
)

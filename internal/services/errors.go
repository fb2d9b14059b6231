package services

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrConflict           = errors.New("task was modified concurrently, reload and retry")
	ErrAssistantNoPrice   = errors.New("assistant does not offer this task at these parameters")
	ErrPaymentNotAllowed  = errors.New("payment not allowed for this task")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

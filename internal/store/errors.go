package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

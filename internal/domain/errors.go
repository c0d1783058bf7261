package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCaseFiled        = errors.New("case already filed for this conversation")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// ErrDuplicateReference is returned by case stores when a reference is taken.
// It also matches ErrInvalidInput.
var ErrDuplicateReference = fmt.Errorf("%w: duplicate case reference", ErrInvalidInput)

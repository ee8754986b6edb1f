package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrOutOfStock     = errors.New("out of stock")
	ErrUnknownVariant = errors.New("unknown variant")
)

// SelectionError kinds
const (
	SelectionColorRequired    = "COLOR_REQUIRED"
	SelectionSizeRequired     = "SIZE_REQUIRED"
	SelectionSizeNotAvailable = "SIZE_NOT_AVAILABLE_FOR_COLOR"
	SelectionOutOfStock       = "OUT_OF_STOCK"
)

// SelectionError reports a state-machine precondition violation. It is
// surfaced to the caller for user-facing messaging; the selection
// itself is left unchanged.
type SelectionError struct {
	Kind    string
	Message string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selection error %s: %s", e.Kind, e.Message)
}

// NewSelectionError creates a SelectionError with the given kind.
func NewSelectionError(kind, message string) *SelectionError {
	return &SelectionError{Kind: kind, Message: message}
}

// IsSelectionError reports whether err is a SelectionError and returns it.
func IsSelectionError(err error) (*SelectionError, bool) {
	var se *SelectionError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

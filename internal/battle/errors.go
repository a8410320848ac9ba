package battle

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("battle not found")
	ErrNotAParticipant    = errors.New("player is not a participant in this battle")
	ErrInvariantViolation = errors.New("battle invariant violated")
)

// ValidationError rejects an action without changing state. It is reported
// to the submitting player only.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

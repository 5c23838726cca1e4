package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when a send violates the minimum
	// inter-message interval. No network call is made.
	ErrRateLimited = errors.New("sending too fast, wait a moment")

	// ErrSendInFlight is returned when a send is attempted while a
	// previous send for the same conversation has not settled.
	ErrSendInFlight = errors.New("a message is already being sent")
)

// ValidationReason classifies why a message was rejected locally.
type ValidationReason string

const (
	ReasonEmpty   ValidationReason = "empty"
	ReasonTooLong ValidationReason = "too_long"
	ReasonUnsafe  ValidationReason = "unsafe"
)

// ValidationError is a locally resolved rejection of the user's text.
// It never reaches the transport layer.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message (%s): %s", e.Reason, e.Detail)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

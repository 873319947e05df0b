// Package apperrors defines the error taxonomy shared across the trading core.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers classify failures with errors.Is against these.
var (
	// ErrInvalidArgument marks a precondition violation. Fail-fast; never
	// recovered inside the core.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateKey marks insertion of an already-present identifier.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidStateTrigger marks an order state machine rejecting a
	// transition. Caught inside the execution engine's event path.
	ErrInvalidStateTrigger = errors.New("invalid state trigger")

	// ErrNotFound marks a queried identifier being absent.
	ErrNotFound = errors.New("not found")

	// ErrSerialization marks a message that cannot be encoded or decoded.
	ErrSerialization = errors.New("serialization error")

	// ErrTransport marks a network failure from the messaging layer.
	ErrTransport = errors.New("transport error")

	// ErrNoHandler marks a timer registration with no handler and no
	// registered default handler.
	ErrNoHandler = errors.New("no handler")
)

// Invalid returns an ErrInvalidArgument with a formatted description.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotEmpty checks that a string value is non-empty.
func NotEmpty(value, name string) error {
	if value == "" {
		return Invalid("%s cannot be empty", name)
	}
	return nil
}

// True checks an arbitrary precondition.
func True(condition bool, description string) error {
	if !condition {
		return Invalid("%s", description)
	}
	return nil
}

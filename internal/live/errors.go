package live

import "errors"

var (
	// ErrUnknownSession means an event referenced a code that was never
	// issued. Returned to the offending caller; room state is untouched.
	ErrUnknownSession = errors.New("unknown session code")

	// ErrCodeExhausted means code generation kept colliding with issued
	// codes. With a 36^6 space this only happens if crypto/rand is broken
	// or the registry is absurdly full.
	ErrCodeExhausted = errors.New("failed to generate unique session code")

	// ErrCodeTaken means Reinstate found the room's code reissued to a
	// newer session.
	ErrCodeTaken = errors.New("session code already in use")
)

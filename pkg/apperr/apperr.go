// Package apperr defines the sentinel error taxonomy shared by the
// messaging core. Callers classify failures with errors.Is; packages wrap
// these sentinels with fmt.Errorf("%w: ...") to add context.
package apperr

import "errors"

var (
	// ErrNotFound covers unknown conversations, messages and users.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a caller attempts an operation
	// reserved for another identity (e.g. editing someone else's message).
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidReference marks a reply_to that does not resolve within
	// the same conversation or points at a later message.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidArgument covers malformed requests such as an empty
	// participant set on conversation create.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedType is returned for attachment kinds outside the
	// accepted set.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrConflict marks a write that would duplicate existing state,
	// such as adding a participant who is already a member.
	ErrConflict = errors.New("conflict")
)

package creature

import "errors"

var (
	// ErrCapacityExceeded is returned by Spawn when every slot is occupied.
	ErrCapacityExceeded = errors.New("creature: registry full")
	// ErrInvalidReference is returned for vacant, dying or out-of-range slots.
	ErrInvalidReference = errors.New("creature: invalid reference")
	// ErrIllegalTransition is returned when a requested state cannot be entered.
	ErrIllegalTransition = errors.New("creature: illegal state transition")
	// ErrUnreachable is returned when no path exists to a destination.
	ErrUnreachable = errors.New("creature: destination unreachable")
	// ErrNotOwner is returned when a player commands a creature it does not own.
	ErrNotOwner = errors.New("creature: not owner")
	// ErrInvalidKind is returned for the reserved or unknown creature kinds.
	ErrInvalidKind = errors.New("creature: invalid kind")
	// ErrClosed is returned by Spawn after Shutdown.
	ErrClosed = errors.New("creature: registry closed")
)

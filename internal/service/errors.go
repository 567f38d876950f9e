package service

import (
	"errors"
	"fmt"
)

// Conflict is the normal outcome of losing a race on a slot; it is surfaced
// to the caller as "pick another time", never logged as a system error.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("slot no longer available")
	ErrUnauthorized = errors.New("forbidden")

	// ErrHoldExpired is a Conflict refinement: the caller held the slot but
	// the hold lapsed before Book. errors.Is(err, ErrConflict) still matches.
	ErrHoldExpired = fmt.Errorf("%w: hold expired", ErrConflict)
)

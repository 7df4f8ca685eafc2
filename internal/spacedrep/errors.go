package spacedrep

import "errors"

// Sentinel errors for the spacedrep package. Check with errors.Is.
var (
	ErrInvalidRating = errors.New("spacedrep: rating must be between 0 and 5")
	ErrUnknownMode   = errors.New("spacedrep: unknown queue mode")
	ErrMissingScope  = errors.New("spacedrep: application mode requires a scope")
)

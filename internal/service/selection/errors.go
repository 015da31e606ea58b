package selection

import "errors"

var (
	ErrSelectionNotFound = errors.New("selection not found")
	ErrNotLoaded         = errors.New("slots not loaded")
	ErrSlotOutOfRange    = errors.New("slot index out of range")
	ErrInvalidTime       = errors.New("time must be HH:MM")
	ErrCannotProceed     = errors.New("selection incomplete")
	ErrCityRequired      = errors.New("city is required")
)

// loadErrorMessage is what the view shows while the seat fetch is failing.
const loadErrorMessage = "Failed to load parking slots. Please try again."

package entity

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session has a turn in flight")
	ErrSessionComplete = errors.New("session is already complete")

	// Catalog errors
	ErrIndexOutOfRange = errors.New("question index out of range")

	// Turn errors
	ErrModelUnavailable     = errors.New("language model unavailable")
	ErrMalformedModelOutput = errors.New("malformed model output")

	// Validation errors
	ErrInvalidParameter = errors.New("invalid parameter")

	// Result errors
	ErrNoResult = errors.New("onboarding summary not available")
)

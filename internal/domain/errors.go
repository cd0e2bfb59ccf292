// Package domain defines the core task entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a task or submission fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPriority is returned when a priority value is not one of
	// high, medium or low.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidStatus is returned when a status value is not a known
	// lifecycle state.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition is returned when a status change would violate
	// the task state machine, including any attempt to move a terminal
	// record.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidID is returned when a task ID is malformed.
	ErrInvalidID = errors.New("invalid task ID")
)

package task

import "errors"

// Common errors returned by the engine's components.
var (
	// ErrQueueClosed is returned when enqueueing into a queue that has been
	// shut down.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrDuplicateTask is returned when enqueueing an ID that is already
	// queued.
	ErrDuplicateTask = errors.New("task already queued")

	// ErrHandlerNotFound is returned when no handler is registered for a
	// task type.
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrDuplicateHandler is returned when registering a second handler for
	// the same task type. Duplicate registration is rejected to avoid
	// silent override.
	ErrDuplicateHandler = errors.New("handler already registered for task type")

	// ErrNotStarted is returned by operations that need a running board.
	ErrNotStarted = errors.New("board is not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("board is already started")
)

// Cancellation causes attached to a task's context so the worker can tell,
// after the handler returns, why the cooperative signal was raised.
var (
	errCancelRequested   = errors.New("task cancellation requested")
	errDeadlineExceeded  = errors.New("task deadline exceeded")
	errBoardShuttingDown = errors.New("board shutting down")
)

package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusTimedOut   TaskStatus = "timed_out"
)

// IsValid checks if the status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled, TaskStatusTimedOut:
		return true
	}
	return false
}

// IsTerminal reports whether the status is final. A terminal record's
// result, error and timestamps are frozen.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled, TaskStatusTimedOut:
		return true
	}
	return false
}

// validTransitions encodes the task lifecycle state machine. A status may
// only move to one of the statuses listed for it here.
var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending: {
		TaskStatusInProgress, // worker claims
		TaskStatusCancelled,  // explicit cancel
		TaskStatusFailed,     // crash recovery with no retries left
	},
	TaskStatusInProgress: {
		TaskStatusCompleted, // handler returned ok
		TaskStatusFailed,    // handler raised, no retries
		TaskStatusPending,   // handler raised or deadline exceeded, retries remain
		TaskStatusTimedOut,  // deadline exceeded, no retries
		TaskStatusCancelled, // explicit cancel, handler honored the signal
	},
}

// CanTransitionTo reports whether moving from s to next is a legal walk of
// the task state machine. Terminal statuses allow no further moves.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range validTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// TaskPriority determines dispatch order. Priority strictly dominates
// submission order: all pending high tasks dequeue before any medium task.
type TaskPriority string

// Possible task priority values.
const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// IsValid checks if the priority is one of the known values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

// Weight returns the numeric rank of the priority, higher is dispatched
// first.
func (p TaskPriority) Weight() int {
	switch p {
	case TaskPriorityHigh:
		return 2
	case TaskPriorityMedium:
		return 1
	default:
		return 0
	}
}

// ParsePriority converts a string into a TaskPriority, returning
// ErrInvalidPriority for unknown values.
func ParsePriority(s string) (TaskPriority, error) {
	p := TaskPriority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// ErrorKind classifies a task-level failure captured on the record.
type ErrorKind string

// Possible error kinds recorded on a failed or timed out task.
const (
	ErrorKindHandlerNotFound ErrorKind = "handler_not_found"
	ErrorKindHandler         ErrorKind = "handler_error"
	ErrorKindTimeout         ErrorKind = "timeout"
	ErrorKindCancelled       ErrorKind = "cancelled"
	ErrorKindInterrupted     ErrorKind = "interrupted"
)

// TaskError is the structured error captured on a task record when it fails,
// times out or is abandoned. It travels with the record rather than being
// raised to the submitter: the asynchronous boundary never throws errors
// back across time.
type TaskError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Digest is a compact derived summary of a completed task's result, so
// callers can read key findings without parsing a large result payload.
// It is computed once at completion time and never recomputed.
type Digest struct {
	Summary  string   `json:"summary"`
	Findings []string `json:"findings,omitempty"`
}

// Task is the persisted unit of schedulable work. A record is created by the
// board on submit, mutated by the worker that owns it or by the timeout
// monitor, and evicted only by the retention policy.
type Task struct {
	ID               uuid.UUID       `json:"id"`
	Type             string          `json:"type"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	Priority         TaskPriority    `json:"priority"`
	Status           TaskStatus      `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	TimeoutSeconds   int             `json:"timeout_seconds"`
	MaxRetries       int             `json:"max_retries"`
	RetriesRemaining int             `json:"retries_remaining"`
	Result           json.RawMessage `json:"result,omitempty"`
	Error            *TaskError      `json:"error,omitempty"`
	Owner            string          `json:"owner,omitempty"`
	Digest           *Digest         `json:"digest,omitempty"`
}

// NewTask creates a new pending task with a fresh ID and creation timestamp.
// It validates the fields callers control; the type must be non-empty, the
// priority one of the known values, and the budgets non-negative.
func NewTask(
	taskType string,
	payload json.RawMessage,
	priority TaskPriority,
	timeoutSeconds int,
	maxRetries int,
) (*Task, error) {
	if taskType == "" {
		return nil, fmt.Errorf("%w: task type cannot be empty", ErrValidation)
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	if timeoutSeconds <= 0 {
		return nil, fmt.Errorf("%w: timeout_seconds must be positive", ErrValidation)
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("%w: max_retries cannot be negative", ErrValidation)
	}

	return &Task{
		ID:               uuid.New(),
		Type:             taskType,
		Payload:          payload,
		Priority:         priority,
		Status:           TaskStatusPending,
		CreatedAt:        time.Now().UTC(),
		TimeoutSeconds:   timeoutSeconds,
		MaxRetries:       maxRetries,
		RetriesRemaining: maxRetries,
	}, nil
}

// Validate checks that the task's fields are internally consistent. Used on
// records loaded from the store, where the data may predate the running
// binary.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be nil", ErrValidation)
	}
	if t.Type == "" {
		return fmt.Errorf("%w: task type cannot be empty", ErrValidation)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout_seconds must be positive", ErrValidation)
	}
	return nil
}

// TransitionTo moves the task to the given status, enforcing the state
// machine. Terminal records never regress.
func (t *Task) TransitionTo(next TaskStatus) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	return nil
}

// Deadline returns the instant the current attempt's timeout budget expires.
// The zero time is returned for tasks that have not started.
func (t *Task) Deadline() time.Time {
	if t.StartedAt == nil {
		return time.Time{}
	}
	return t.StartedAt.Add(time.Duration(t.TimeoutSeconds) * time.Second)
}

// Overdue reports whether the task is in progress and past its deadline.
func (t *Task) Overdue(now time.Time) bool {
	if t.Status != TaskStatusInProgress || t.StartedAt == nil {
		return false
	}
	return now.After(t.Deadline())
}

// Clone returns an independent copy of the task. List and result reads hand
// out clones so callers can never mutate board state.
func (t *Task) Clone() *Task {
	clone := *t
	if t.StartedAt != nil {
		startedAt := *t.StartedAt
		clone.StartedAt = &startedAt
	}
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if t.Payload != nil {
		clone.Payload = append(json.RawMessage(nil), t.Payload...)
	}
	if t.Result != nil {
		clone.Result = append(json.RawMessage(nil), t.Result...)
	}
	if t.Error != nil {
		taskErr := *t.Error
		clone.Error = &taskErr
	}
	if t.Digest != nil {
		digest := Digest{Summary: t.Digest.Summary}
		digest.Findings = append([]string(nil), t.Digest.Findings...)
		clone.Digest = &digest
	}
	return &clone
}

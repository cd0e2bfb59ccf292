package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
)

// Common request/response structures

// SubmitTaskRequest defines the payload for the task submission endpoint.
type SubmitTaskRequest struct {
	Type    string          `json:"type"    validate:"required"`
	Payload json.RawMessage `json:"payload"`

	// Priority is optional; the engine defaults to medium.
	Priority string `json:"priority"        validate:"omitempty,oneof=high medium low"`

	// TimeoutSeconds is optional; zero means the configured default applies.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" validate:"gte=0"`

	// MaxRetries is optional; nil means the configured default applies and
	// an explicit zero disables retries.
	MaxRetries *int `json:"max_retries,omitempty" validate:"omitempty,gte=0"`
}

// SubmitTaskResponse defines the response for an accepted submission. Warning
// is set when the record could not be persisted and the task runs with
// in-memory state only.
type SubmitTaskResponse struct {
	ID      uuid.UUID `json:"id"`
	Status  string    `json:"status"`
	Warning string    `json:"warning,omitempty"`
}

// TaskStatusResponse defines the response for a status query.
type TaskStatusResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// CancelTaskResponse defines the response for a cancellation request. For a
// running task the reported status is the state at the time of the request;
// the terminal state lands asynchronously.
type CancelTaskResponse struct {
	ID        uuid.UUID `json:"id"`
	Cancelled bool      `json:"cancelled"`
	Status    string    `json:"status"`
}

// TaskSummary is one row of a task listing.
type TaskSummary struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Owner       string     `json:"owner,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListTasksResponse defines the response for a task listing.
type ListTasksResponse struct {
	Tasks []TaskSummary `json:"tasks"`
}

// taskToSummary maps a domain record to its listing row.
func taskToSummary(t *domain.Task) TaskSummary {
	return TaskSummary{
		ID:          t.ID,
		Type:        t.Type,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Owner:       t.Owner,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

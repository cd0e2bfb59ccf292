package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/store"
	"github.com/phrazzld/taskboard/internal/task"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("submit: %w", domain.ErrValidation), http.StatusBadRequest},
		{"invalid priority", domain.ErrInvalidPriority, http.StatusBadRequest},
		{"handler not found", task.ErrHandlerNotFound, http.StatusBadRequest},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"duplicate task", task.ErrDuplicateTask, http.StatusConflict},
		{"queue closed", task.ErrQueueClosed, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"store failure", store.NewStoreError("save", "not persisted", errors.New("disk full")), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Task not found", GetSafeErrorMessage(store.ErrTaskNotFound))
	assert.Equal(t, "Unknown task type", GetSafeErrorMessage(task.ErrHandlerNotFound))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))

	// Internal details of unexpected errors never reach the client.
	msg := GetSafeErrorMessage(errors.New("pq: connection refused host=10.0.0.5"))
	assert.NotContains(t, msg, "10.0.0.5")

	// Validation messages keep their field context.
	err := fmt.Errorf("%w: timeout_seconds must be positive", domain.ErrValidation)
	assert.Contains(t, GetSafeErrorMessage(err), "timeout_seconds")
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := errors.New(
		"Key: 'SubmitTaskRequest.Type' Error:Field validation for 'Type' failed on the 'required' tag")
	assert.Equal(t, "Invalid Type: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/api/shared"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/store"
	"github.com/phrazzld/taskboard/internal/task"
)

// maxWait bounds the blocking result endpoint so a client cannot pin a
// connection indefinitely.
const maxWait = 60 * time.Second

// BoardService is the engine surface the HTTP layer depends on.
type BoardService interface {
	Submit(ctx context.Context, req task.SubmitRequest) (uuid.UUID, error)
	Status(ctx context.Context, id uuid.UUID) (domain.TaskStatus, error)
	Result(ctx context.Context, id uuid.UUID) (*task.TaskResult, error)
	WaitResult(ctx context.Context, id uuid.UUID, wait time.Duration) (*task.TaskResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter task.ListFilter) []*domain.Task
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	board  BoardService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(board BoardService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		board:  board,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// SubmitTask handles POST /tasks requests.
// It validates the submission and enqueues a new task, responding 202 with
// the task ID. A persistence failure still accepts the task: the response
// carries a warning and the task runs with in-memory state only.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("invalid submission",
			slog.String("error", err.Error()),
			slog.String("task_type", req.Type))
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	id, err := h.board.Submit(r.Context(), task.SubmitRequest{
		Type:           req.Type,
		Payload:        req.Payload,
		Priority:       domain.TaskPriority(req.Priority),
		TimeoutSeconds: req.TimeoutSeconds,
		MaxRetries:     req.MaxRetries,
	})

	// A store failure degrades to best effort: the task was accepted and
	// will run, so this is still a 202, flagged for the caller.
	var storeErr *store.StoreError
	if err != nil && errors.As(err, &storeErr) && id != uuid.Nil {
		log.Warn("task accepted without persistence",
			slog.String("task_id", id.String()),
			slog.String("task_type", req.Type),
			slog.String("error", err.Error()))
		shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
			ID:      id,
			Status:  string(domain.TaskStatusPending),
			Warning: "task accepted but not persisted; it will not survive a restart",
		})
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("task submitted",
		slog.String("task_id", id.String()),
		slog.String("task_type", req.Type))
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		ID:     id,
		Status: string(domain.TaskStatusPending),
	})
}

// GetTaskStatus handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskIDFromPath(w, r)
	if !ok {
		return
	}

	status, err := h.board.Status(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskStatusResponse{
		ID:     id,
		Status: string(status),
	})
}

// GetTaskResult handles GET /tasks/{id}/result requests.
// Without a wait parameter it returns immediately; a not-yet-terminal task
// reports ready=false, which is an indicator rather than an error. An
// optional ?wait=5s query parameter blocks up to that budget for the task to
// reach a terminal state.
func (h *TaskHandler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := h.taskIDFromPath(w, r)
	if !ok {
		return
	}

	var wait time.Duration
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			log.Warn("invalid wait parameter", slog.String("wait", raw))
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid wait duration")
			return
		}
		wait = parsed
		if wait > maxWait {
			wait = maxWait
		}
	}

	var res *task.TaskResult
	var err error
	if wait > 0 {
		res, err = h.board.WaitResult(r.Context(), id, wait)
	} else {
		res, err = h.board.Result(r.Context(), id)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// CancelTask handles POST /tasks/{id}/cancel requests.
// Cancelling a pending task is immediate; for a running task the cooperative
// signal is raised and the terminal state lands asynchronously. A task
// already in a terminal state responds 409.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskIDFromPath(w, r)
	if !ok {
		return
	}

	accepted, err := h.board.Cancel(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if !accepted {
		shared.RespondWithError(w, r, http.StatusConflict, "Task already in a terminal state")
		return
	}

	status, err := h.board.Status(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, CancelTaskResponse{
		ID:        id,
		Cancelled: true,
		Status:    string(status),
	})
}

// ListTasks handles GET /tasks requests with optional status and priority
// query filters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var filter task.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.IsValid() {
			log.Warn("invalid status filter", slog.String("status", raw))
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority, err := domain.ParsePriority(raw)
		if err != nil {
			log.Warn("invalid priority filter", slog.String("priority", raw))
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid priority filter")
			return
		}
		filter.Priority = &priority
	}

	records := h.board.List(r.Context(), filter)
	summaries := make([]TaskSummary, 0, len(records))
	for _, t := range records {
		summaries = append(summaries, taskToSummary(t))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ListTasksResponse{Tasks: summaries})
}

// taskIDFromPath parses the {id} path parameter, responding 400 on a missing
// or malformed ID.
func (h *TaskHandler) taskIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	raw := chi.URLParam(r, "id")
	if raw == "" {
		log.Warn("task ID not found in URL path")
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid task ID format", slog.String("task_id", raw))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID format")
		return uuid.Nil, false
	}
	return id, true
}

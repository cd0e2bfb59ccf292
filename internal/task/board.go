package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/store"
)

// Config holds the scheduling knobs for a Board.
type Config struct {
	// WorkerCount determines how many concurrent workers process tasks.
	WorkerCount int

	// DefaultTimeoutSeconds is applied to submissions that carry no
	// explicit deadline budget.
	DefaultTimeoutSeconds int

	// DefaultMaxRetries is applied to submissions that carry no explicit
	// retry budget.
	DefaultMaxRetries int

	// SweepInterval is how often the timeout monitor scans for overdue
	// tasks.
	SweepInterval time.Duration

	// GracePeriod is how long the monitor waits after raising the
	// cancellation signal before force-marking an overdue task timed_out.
	GracePeriod time.Duration

	// RetentionAge is how long terminal records survive before eviction.
	// Zero disables the retention janitor.
	RetentionAge time.Duration

	// CleanupInterval is how often the retention janitor runs.
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:           2,
		DefaultTimeoutSeconds: 300,
		DefaultMaxRetries:     1,
		SweepInterval:         5 * time.Second,
		GracePeriod:           5 * time.Second,
		RetentionAge:          24 * time.Hour,
		CleanupInterval:       10 * time.Minute,
	}
}

// Board is the task engine facade. It owns all mutable scheduling state:
// the record map, the priority queue, per-task cancellation functions and
// completion signals. Callers hold a Board by reference; there are no
// package-level singletons.
//
// One mutex guards the record map and its ancillary maps. The queue
// synchronizes itself. Persistence follows a single-writer discipline: only
// the code path that just transitioned a record's status saves it.
type Board struct {
	config   Config
	store    store.TaskStore
	registry *Registry
	logger   *slog.Logger
	queue    *PriorityQueue

	mu             sync.Mutex
	tasks          map[uuid.UUID]*domain.Task
	leases         map[uuid.UUID]uuid.UUID
	cancels        map[uuid.UUID]context.CancelCauseFunc
	done           map[uuid.UUID]chan struct{}
	signalled      map[uuid.UUID]time.Time
	cancelRequests map[uuid.UUID]bool
	started        bool

	rootCtx    context.Context
	rootCancel context.CancelCauseFunc
	wg         sync.WaitGroup
}

// NewBoard creates a Board over the given store and handler registry.
// Invalid config values fall back to defaults.
func NewBoard(taskStore store.TaskStore, registry *Registry, config Config, logger *slog.Logger) *Board {
	defaults := DefaultConfig()
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", defaults.WorkerCount)
		config.WorkerCount = defaults.WorkerCount
	}
	if config.DefaultTimeoutSeconds <= 0 {
		config.DefaultTimeoutSeconds = defaults.DefaultTimeoutSeconds
	}
	if config.DefaultMaxRetries < 0 {
		config.DefaultMaxRetries = defaults.DefaultMaxRetries
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.GracePeriod < 0 {
		config.GracePeriod = defaults.GracePeriod
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}

	rootCtx, rootCancel := context.WithCancelCause(context.Background())

	return &Board{
		config:         config,
		store:          taskStore,
		registry:       registry,
		logger:         logger,
		queue:          NewPriorityQueue(),
		tasks:          make(map[uuid.UUID]*domain.Task),
		leases:         make(map[uuid.UUID]uuid.UUID),
		cancels:        make(map[uuid.UUID]context.CancelCauseFunc),
		done:           make(map[uuid.UUID]chan struct{}),
		signalled:      make(map[uuid.UUID]time.Time),
		cancelRequests: make(map[uuid.UUID]bool),
		rootCtx:        rootCtx,
		rootCancel:     rootCancel,
	}
}

// Start recovers persisted tasks and launches the worker pool, the timeout
// monitor and, when retention is enabled, the retention janitor.
func (b *Board) Start() error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.mu.Unlock()

	if err := b.recoverTasks(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < b.config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}

	b.wg.Add(1)
	go b.timeoutMonitor()

	if b.config.RetentionAge > 0 {
		b.wg.Add(1)
		go b.retentionJanitor()
	}

	return nil
}

// Stop shuts the board down. Running handlers get their cancellation signal
// and Stop waits for them to observe it; their records stay in_progress in
// the store and are recovered on the next start.
func (b *Board) Stop() {
	b.rootCancel(errBoardShuttingDown)
	b.queue.Close()
	b.wg.Wait()
}

// SubmitRequest carries the caller-controlled fields of a submission.
type SubmitRequest struct {
	Type    string
	Payload json.RawMessage

	// Priority defaults to medium when empty.
	Priority domain.TaskPriority

	// TimeoutSeconds defaults to the configured per-task budget when zero.
	TimeoutSeconds int

	// MaxRetries defaults to the configured budget when nil. Zero is a
	// valid explicit value meaning no retries.
	MaxRetries *int
}

// Submit validates a submission, persists a new pending record and enqueues
// it. Validation failures are synchronous and the task never enters the
// queue. A persistence failure does not reject the task: the returned error
// wraps the store failure while the task still runs, degrading to
// best-effort persistence. An enqueue failure (the board is shutting down)
// rejects the submission and leaves no record behind.
func (b *Board) Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	if !b.registry.Registered(req.Type) {
		return uuid.Nil, fmt.Errorf("%w: unknown task type %q", domain.ErrValidation, req.Type)
	}
	if err := b.registry.ValidatePayload(req.Type, req.Payload); err != nil {
		return uuid.Nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	timeoutSeconds := req.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = b.config.DefaultTimeoutSeconds
	}
	maxRetries := b.config.DefaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	t, err := domain.NewTask(req.Type, req.Payload, priority, timeoutSeconds, maxRetries)
	if err != nil {
		return uuid.Nil, err
	}

	b.mu.Lock()
	b.tasks[t.ID] = t
	b.done[t.ID] = make(chan struct{})
	saveErr := b.persistLocked(ctx, t)
	if err := b.queue.Enqueue(t.ID, t.Priority); err != nil {
		// The submission is rejected outright: no worker will ever see it,
		// so it must not linger as a pending record nobody finalizes.
		delete(b.tasks, t.ID)
		delete(b.done, t.ID)
		b.mu.Unlock()
		if saveErr == nil {
			if delErr := b.store.Delete(ctx, t.ID); delErr != nil {
				b.logger.Error("failed to remove rejected task record",
					"task_id", t.ID, "error", delErr)
			}
		}
		return uuid.Nil, fmt.Errorf("failed to enqueue task: %w", err)
	}
	b.mu.Unlock()

	b.logger.Info("task submitted",
		"task_id", t.ID,
		"task_type", t.Type,
		"priority", t.Priority,
		"timeout_seconds", t.TimeoutSeconds,
		"max_retries", t.MaxRetries)

	return t.ID, saveErr
}

// Status returns the current lifecycle state of a task.
func (b *Board) Status(ctx context.Context, id uuid.UUID) (domain.TaskStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return "", store.ErrTaskNotFound
	}
	return t.Status, nil
}

// TaskResult is the structured outcome of a result query. Ready is false
// while the task has not reached a terminal state; a not-ready result is an
// indicator, not an error. For failed or timed out tasks Error carries the
// structured failure instead of a result.
type TaskResult struct {
	ID     uuid.UUID         `json:"id"`
	Status domain.TaskStatus `json:"status"`
	Ready  bool              `json:"ready"`
	Result json.RawMessage   `json:"result,omitempty"`
	Digest *domain.Digest    `json:"digest,omitempty"`
	Error  *domain.TaskError `json:"error,omitempty"`
}

// Result returns a task's outcome without blocking.
func (b *Board) Result(ctx context.Context, id uuid.UUID) (*TaskResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return b.resultLocked(t), nil
}

// WaitResult blocks until the task reaches a terminal state, the supplied
// wait budget elapses, or ctx is done. When the budget elapses the current
// not-ready result is returned rather than an error.
func (b *Board) WaitResult(ctx context.Context, id uuid.UUID, wait time.Duration) (*TaskResult, error) {
	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		return nil, store.ErrTaskNotFound
	}
	if t.Status.IsTerminal() {
		res := b.resultLocked(t)
		b.mu.Unlock()
		return res, nil
	}
	done := b.done[id]
	b.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	case <-done:
	}
	return b.Result(ctx, id)
}

// Cancel requests cancellation of a task. A still-pending task is pulled
// from the queue and marked cancelled immediately; no worker will ever run
// its handler. For an in-progress task the cooperative signal is raised and
// completion is asynchronous. The request sticks: a handler that ignores the
// signal is abandoned by the deadline sweep and the task still ends
// cancelled, never retried. Returns false for tasks already in a terminal
// state.
func (b *Board) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return false, store.ErrTaskNotFound
	}

	switch t.Status {
	case domain.TaskStatusPending:
		b.queue.Remove(id)
		if err := t.TransitionTo(domain.TaskStatusCancelled); err != nil {
			return false, err
		}
		t.Error = &domain.TaskError{
			Kind:    domain.ErrorKindCancelled,
			Message: "cancelled before execution",
		}
		now := time.Now().UTC()
		t.CompletedAt = &now
		b.closeDoneLocked(id)
		_ = b.persistLocked(ctx, t)
		b.logger.Info("pending task cancelled", "task_id", id, "task_type", t.Type)
		return true, nil

	case domain.TaskStatusInProgress:
		b.cancelRequests[id] = true
		if cancel, ok := b.cancels[id]; ok {
			cancel(errCancelRequested)
		}
		b.logger.Info("cancellation signalled for running task",
			"task_id", id, "task_type", t.Type, "owner", t.Owner)
		return true, nil

	default:
		return false, nil
	}
}

// ListFilter narrows a List snapshot. Nil fields match everything.
type ListFilter struct {
	Status   *domain.TaskStatus
	Priority *domain.TaskPriority
}

// List returns a read-only snapshot of task records matching the filter,
// ordered by creation time.
func (b *Board) List(ctx context.Context, filter ListFilter) []*domain.Task {
	b.mu.Lock()
	records := make([]*domain.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		records = append(records, t.Clone())
	}
	b.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}

// recoverTasks reconciles persisted state after a restart. Pending records
// are requeued. A record left in_progress by a crash is requeued as pending
// with one retry consumed; with no retries left it is marked failed rather
// than silently lost. Terminal records stay queryable until the retention
// janitor evicts them.
func (b *Board) recoverTasks() error {
	ctx := context.Background()

	records, err := b.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	var requeued, interrupted, terminal int

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range records {
		if err := t.Validate(); err != nil {
			b.logger.Warn("skipping invalid persisted task record",
				"task_id", t.ID, "error", err)
			continue
		}

		switch {
		case t.Status == domain.TaskStatusPending:
			b.tasks[t.ID] = t
			b.done[t.ID] = make(chan struct{})
			if err := b.queue.Enqueue(t.ID, t.Priority); err != nil {
				b.logger.Error("failed to requeue pending task",
					"task_id", t.ID, "error", err)
			}
			requeued++

		case t.Status == domain.TaskStatusInProgress:
			t.Owner = ""
			if t.RetriesRemaining > 0 {
				t.RetriesRemaining--
				_ = t.TransitionTo(domain.TaskStatusPending)
				b.tasks[t.ID] = t
				b.done[t.ID] = make(chan struct{})
				_ = b.persistLocked(ctx, t)
				if err := b.queue.Enqueue(t.ID, t.Priority); err != nil {
					b.logger.Error("failed to requeue interrupted task",
						"task_id", t.ID, "error", err)
				}
				requeued++
			} else {
				_ = t.TransitionTo(domain.TaskStatusFailed)
				t.Error = &domain.TaskError{
					Kind:    domain.ErrorKindInterrupted,
					Message: "interrupted by restart with no retries remaining",
				}
				now := time.Now().UTC()
				t.CompletedAt = &now
				b.tasks[t.ID] = t
				b.done[t.ID] = closedChan()
				_ = b.persistLocked(ctx, t)
				interrupted++
			}

		default:
			b.tasks[t.ID] = t
			b.done[t.ID] = closedChan()
			terminal++
		}
	}

	b.logger.Info("recovered persisted tasks",
		"requeued", requeued,
		"interrupted", interrupted,
		"terminal", terminal)

	return nil
}

// resultLocked builds a TaskResult view. Caller holds b.mu.
func (b *Board) resultLocked(t *domain.Task) *TaskResult {
	res := &TaskResult{
		ID:     t.ID,
		Status: t.Status,
		Ready:  t.Status.IsTerminal(),
	}
	if t.Result != nil {
		res.Result = append(json.RawMessage(nil), t.Result...)
	}
	if t.Digest != nil {
		digest := *t.Digest
		res.Digest = &digest
	}
	if t.Error != nil {
		taskErr := *t.Error
		res.Error = &taskErr
	}
	return res
}

// persistLocked saves a record, degrading to best effort: a failed save is
// logged and the wrapped error returned, but the in-memory state keeps the
// transition that was just made. Caller holds b.mu.
func (b *Board) persistLocked(ctx context.Context, t *domain.Task) error {
	if err := b.store.Save(ctx, t); err != nil {
		b.logger.Error("failed to persist task record",
			"task_id", t.ID,
			"task_type", t.Type,
			"status", t.Status,
			"error", err)
		return store.NewStoreError("save", "task record not persisted", err)
	}
	return nil
}

// closeDoneLocked releases any WaitResult callers. Caller holds b.mu; only
// terminal transitions close the channel, and the state machine guarantees
// a record goes terminal at most once.
func (b *Board) closeDoneLocked(id uuid.UUID) {
	if ch, ok := b.done[id]; ok {
		close(ch)
	}
}

// closedChan returns an already-closed completion channel, used for records
// loaded from the store in a terminal state.
func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

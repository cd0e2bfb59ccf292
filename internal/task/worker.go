package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
)

// claimedTask bundles everything a worker needs to run one attempt: a clone
// of the record for the handler, the lease proving ownership of this
// attempt, the per-task cancellation context, and the resolved
// registration.
type claimedTask struct {
	task  *domain.Task
	lease uuid.UUID
	ctx   context.Context
	reg   *registration
	owner string
}

// worker pulls task IDs from the queue until the queue closes.
func (b *Board) worker(id int) {
	defer b.wg.Done()

	owner := fmt.Sprintf("worker-%d", id)
	b.logger.Debug("starting worker", "worker_id", id)

	for {
		taskID, ok := b.queue.Dequeue()
		if !ok {
			b.logger.Debug("queue closed, stopping worker", "worker_id", id)
			return
		}
		b.runTask(taskID, owner)
	}
}

// runTask executes one attempt of a task: claim, invoke, finalize.
func (b *Board) runTask(taskID uuid.UUID, owner string) {
	claimed := b.claim(taskID, owner)
	if claimed == nil {
		return
	}

	b.logger.Info("task started",
		"task_id", taskID,
		"task_type", claimed.task.Type,
		"priority", claimed.task.Priority,
		"owner", owner,
		"retries_remaining", claimed.task.RetriesRemaining)

	result, err := b.invoke(claimed)
	b.finalize(claimed, result, err)
}

// claim atomically transitions a pending record to in_progress, stamping
// started_at and owner and taking a fresh lease. A nil return means the
// task was cancelled or reclassified while queued and the worker should
// skip it. Handler lookup fails fast: a missing handler fails the task, not
// the caller.
func (b *Board) claim(taskID uuid.UUID, owner string) *claimedTask {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[taskID]
	if !ok || t.Status != domain.TaskStatusPending {
		return nil
	}

	_ = t.TransitionTo(domain.TaskStatusInProgress)
	now := time.Now().UTC()
	t.StartedAt = &now
	t.Owner = owner

	reg, err := b.registry.resolve(t.Type)
	if err != nil {
		b.failLocked(t, &domain.TaskError{
			Kind:    domain.ErrorKindHandlerNotFound,
			Message: err.Error(),
		})
		_ = b.persistLocked(context.Background(), t)
		b.logger.Error("no handler registered, task failed",
			"task_id", taskID, "task_type", t.Type)
		return nil
	}

	lease := uuid.New()
	b.leases[taskID] = lease
	taskCtx, cancel := context.WithCancelCause(b.rootCtx)
	b.cancels[taskID] = cancel
	_ = b.persistLocked(context.Background(), t)

	return &claimedTask{
		task:  t.Clone(),
		lease: lease,
		ctx:   taskCtx,
		reg:   reg,
		owner: owner,
	}
}

// invoke runs the handler, converting a panic into a handler error so one
// misbehaving handler cannot take down the pool.
func (b *Board) invoke(c *claimedTask) (result json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("handler panicked",
				"task_id", c.task.ID,
				"task_type", c.task.Type,
				"panic", p)
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return c.reg.handler(c.ctx, c.task.Payload)
}

// finalize applies a handler outcome. The lease check enforces that only
// the worker owning the current attempt may finalize: if the monitor or a
// cancel reclassified the record in the meantime, the outcome is discarded,
// because the scheduler has already logically abandoned this attempt.
func (b *Board) finalize(c *claimedTask, result json.RawMessage, handlerErr error) {
	cause := context.Cause(c.ctx)
	id := c.task.ID

	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok || t.Status != domain.TaskStatusInProgress || b.leases[id] != c.lease {
		b.logger.Debug("discarding outcome of abandoned attempt",
			"task_id", id, "owner", c.owner)
		return
	}

	delete(b.leases, id)
	delete(b.cancels, id)
	delete(b.signalled, id)

	now := time.Now().UTC()

	switch {
	case errors.Is(cause, errBoardShuttingDown):
		// Leave the record in_progress; recovery requeues it next start.
		return

	case errors.Is(cause, errCancelRequested):
		b.cancelRunningLocked(t, now)

	case errors.Is(cause, errDeadlineExceeded):
		b.timeoutLocked(t, now)

	case handlerErr == nil:
		_ = t.TransitionTo(domain.TaskStatusCompleted)
		t.Result = result
		if c.reg.digest != nil && result != nil {
			t.Digest = c.reg.digest(result)
		}
		t.Owner = ""
		t.CompletedAt = &now
		b.closeDoneLocked(id)
		b.logger.Info("task completed",
			"task_id", id,
			"task_type", t.Type,
			"duration", now.Sub(*t.StartedAt))

	case !IsPermanent(handlerErr) && t.RetriesRemaining > 0:
		t.RetriesRemaining--
		_ = t.TransitionTo(domain.TaskStatusPending)
		t.Owner = ""
		if err := b.queue.Enqueue(id, t.Priority); err != nil {
			b.logger.Error("failed to requeue task for retry",
				"task_id", id, "error", err)
		}
		b.logger.Warn("task failed, retrying",
			"task_id", id,
			"task_type", t.Type,
			"retries_remaining", t.RetriesRemaining,
			"error", handlerErr)

	default:
		_ = t.TransitionTo(domain.TaskStatusFailed)
		t.Error = &domain.TaskError{
			Kind:    domain.ErrorKindHandler,
			Message: handlerErr.Error(),
		}
		t.Owner = ""
		t.CompletedAt = &now
		b.closeDoneLocked(id)
		b.logger.Error("task failed",
			"task_id", id,
			"task_type", t.Type,
			"error", handlerErr)
	}

	_ = b.persistLocked(context.Background(), t)
}

// failLocked marks a record failed with the given error. Caller holds b.mu.
func (b *Board) failLocked(t *domain.Task, taskErr *domain.TaskError) {
	_ = t.TransitionTo(domain.TaskStatusFailed)
	t.Error = taskErr
	t.Owner = ""
	now := time.Now().UTC()
	t.CompletedAt = &now
	b.closeDoneLocked(t.ID)
}

// cancelRunningLocked finalizes an in-progress record as cancelled. Caller
// holds b.mu.
func (b *Board) cancelRunningLocked(t *domain.Task, now time.Time) {
	delete(b.cancelRequests, t.ID)
	_ = t.TransitionTo(domain.TaskStatusCancelled)
	t.Error = &domain.TaskError{
		Kind:    domain.ErrorKindCancelled,
		Message: "cancelled while running",
	}
	t.Owner = ""
	t.CompletedAt = &now
	b.closeDoneLocked(t.ID)
	b.logger.Info("task cancelled", "task_id", t.ID, "task_type", t.Type)
}

// timeoutLocked applies the deadline-exceeded transition: back to pending
// with a retry consumed when the budget allows, otherwise terminal
// timed_out. A task whose cancellation was requested never re-enters the
// queue; the deadline only forces the cancellation through. Caller holds
// b.mu.
func (b *Board) timeoutLocked(t *domain.Task, now time.Time) {
	if b.cancelRequests[t.ID] {
		b.cancelRunningLocked(t, now)
		return
	}

	if t.RetriesRemaining > 0 {
		t.RetriesRemaining--
		_ = t.TransitionTo(domain.TaskStatusPending)
		t.Owner = ""
		if err := b.queue.Enqueue(t.ID, t.Priority); err != nil {
			b.logger.Error("failed to requeue timed out task",
				"task_id", t.ID, "error", err)
		}
		b.logger.Warn("task deadline exceeded, retrying",
			"task_id", t.ID,
			"task_type", t.Type,
			"retries_remaining", t.RetriesRemaining)
		return
	}

	_ = t.TransitionTo(domain.TaskStatusTimedOut)
	t.Error = &domain.TaskError{
		Kind:    domain.ErrorKindTimeout,
		Message: fmt.Sprintf("deadline of %ds exceeded", t.TimeoutSeconds),
	}
	t.Owner = ""
	t.CompletedAt = &now
	b.closeDoneLocked(t.ID)
	b.logger.Warn("task timed out",
		"task_id", t.ID,
		"task_type", t.Type,
		"timeout_seconds", t.TimeoutSeconds)
}

package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// timeoutMonitor bounds worst-case execution time per task. It sweeps on a
// fixed interval, isolated from the worker pool so tuning the interval
// never affects worker concurrency.
func (b *Board) timeoutMonitor() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.rootCtx.Done():
			return
		case <-ticker.C:
			b.sweepOverdue(time.Now().UTC())
		}
	}
}

// sweepOverdue handles every in-progress record past its deadline. The
// first sweep to notice raises the cooperative cancellation signal; once
// the grace period has also elapsed the record is reclassified
// unconditionally, whether or not the handler stopped. A handler that
// ignores the signal keeps running, but its lease is revoked, so any
// outcome it eventually produces is discarded.
func (b *Board) sweepOverdue(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, t := range b.tasks {
		if !t.Overdue(now) {
			continue
		}

		signalledAt, signalled := b.signalled[id]
		if !signalled {
			if cancel, ok := b.cancels[id]; ok {
				cancel(errDeadlineExceeded)
			}
			b.signalled[id] = now
			b.logger.Warn("task deadline exceeded, cancellation signalled",
				"task_id", id,
				"task_type", t.Type,
				"owner", t.Owner,
				"timeout_seconds", t.TimeoutSeconds)
			if b.config.GracePeriod > 0 {
				continue
			}
			signalledAt = now
		}

		if now.Sub(signalledAt) < b.config.GracePeriod {
			continue
		}

		// Grace expired: abandon the attempt regardless of handler state.
		delete(b.signalled, id)
		delete(b.leases, id)
		delete(b.cancels, id)
		b.timeoutLocked(t, now)
		_ = b.persistLocked(context.Background(), t)
	}
}

// retentionJanitor evicts terminal records older than the retention age.
// Eviction is the only way a record ever leaves the store.
func (b *Board) retentionJanitor() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.rootCtx.Done():
			return
		case <-ticker.C:
			b.sweepExpired(time.Now().UTC())
		}
	}
}

// sweepExpired removes expired terminal records from the board and the
// store.
func (b *Board) sweepExpired(now time.Time) {
	b.mu.Lock()
	var evict []uuid.UUID
	for id, t := range b.tasks {
		if !t.Status.IsTerminal() || t.CompletedAt == nil {
			continue
		}
		if now.Sub(*t.CompletedAt) > b.config.RetentionAge {
			evict = append(evict, id)
		}
	}
	for _, id := range evict {
		delete(b.tasks, id)
		delete(b.done, id)
	}
	b.mu.Unlock()

	ctx := context.Background()
	for _, id := range evict {
		if err := b.store.Delete(ctx, id); err != nil {
			b.logger.Error("failed to delete expired task record",
				"task_id", id, "error", err)
			continue
		}
		b.logger.Info("expired task record evicted", "task_id", id)
	}
}

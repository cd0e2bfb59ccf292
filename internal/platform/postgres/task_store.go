package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/store"
)

// TaskStore implements store.TaskStore using PostgreSQL. The single-row
// upsert gives Save the atomic commit semantics the engine relies on.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a TaskStore over a connection or transaction.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// WithTx returns a TaskStore bound to the given transaction, so multiple
// record writes can share one commit.
func (s *TaskStore) WithTx(tx *sql.Tx) *TaskStore {
	return &TaskStore{db: tx}
}

// Save upserts the task record.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if task == nil || task.ID == uuid.Nil {
		return fmt.Errorf("%w: task must have an ID", store.ErrInvalidRecord)
	}

	var digest []byte
	if task.Digest != nil {
		var err error
		digest, err = json.Marshal(task.Digest)
		if err != nil {
			return fmt.Errorf("failed to encode task digest: %w", err)
		}
	}

	var errorKind, errorMessage sql.NullString
	if task.Error != nil {
		errorKind = sql.NullString{String: string(task.Error.Kind), Valid: true}
		errorMessage = sql.NullString{String: task.Error.Message, Valid: true}
	}

	query := `
		INSERT INTO tasks (
			id, type, payload, priority, status,
			created_at, started_at, completed_at,
			timeout_seconds, max_retries, retries_remaining,
			result, error_kind, error_message, owner, digest, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			status            = EXCLUDED.status,
			started_at        = EXCLUDED.started_at,
			completed_at      = EXCLUDED.completed_at,
			retries_remaining = EXCLUDED.retries_remaining,
			result            = EXCLUDED.result,
			error_kind        = EXCLUDED.error_kind,
			error_message     = EXCLUDED.error_message,
			owner             = EXCLUDED.owner,
			digest            = EXCLUDED.digest,
			updated_at        = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Type,
		[]byte(task.Payload),
		task.Priority,
		task.Status,
		task.CreatedAt,
		task.StartedAt,
		task.CompletedAt,
		task.TimeoutSeconds,
		task.MaxRetries,
		task.RetriesRemaining,
		[]byte(task.Result),
		errorKind,
		errorMessage,
		task.Owner,
		digest,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to save task record",
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err)
		return fmt.Errorf("failed to save task record: %w", MapError(err))
	}

	return nil
}

// LoadAll returns every task record ordered by creation time, so recovery
// preserves FIFO within a priority level.
func (s *TaskStore) LoadAll(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, type, payload, priority, status,
		       created_at, started_at, completed_at,
		       timeout_seconds, max_retries, retries_remaining,
		       result, error_kind, error_message, owner, digest
		FROM tasks
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query task records", "error", err)
		return nil, fmt.Errorf("failed to query task records: %w", MapError(err))
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", "error", err)
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", "error", err)
		return nil, fmt.Errorf("error iterating task rows: %w", MapError(err))
	}

	return tasks, nil
}

// Delete removes a record, returning store.ErrTaskNotFound when no row
// matches.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task record", "task_id", id, "error", err)
		return fmt.Errorf("failed to delete task record: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// scanTask maps one row onto a domain.Task.
func scanTask(rows *sql.Rows) (*domain.Task, error) {
	var (
		task         domain.Task
		payload      []byte
		result       []byte
		digest       []byte
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		errorKind    sql.NullString
		errorMessage sql.NullString
		owner        sql.NullString
	)

	if err := rows.Scan(
		&task.ID,
		&task.Type,
		&payload,
		&task.Priority,
		&task.Status,
		&task.CreatedAt,
		&startedAt,
		&completedAt,
		&task.TimeoutSeconds,
		&task.MaxRetries,
		&task.RetriesRemaining,
		&result,
		&errorKind,
		&errorMessage,
		&owner,
		&digest,
	); err != nil {
		return nil, err
	}

	task.Payload = payload
	task.Result = result
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		task.CompletedAt = &t
	}
	if errorKind.Valid {
		task.Error = &domain.TaskError{
			Kind:    domain.ErrorKind(errorKind.String),
			Message: errorMessage.String,
		}
	}
	task.Owner = owner.String
	if len(digest) > 0 {
		var d domain.Digest
		if err := json.Unmarshal(digest, &d); err != nil {
			return nil, fmt.Errorf("failed to decode task digest: %w", err)
		}
		task.Digest = &d
	}

	return &task, nil
}

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
)

// TaskStore defines the persistence contract for task records. The store is
// the durable source of truth recovered on restart; the engine's in-memory
// state is rebuilt from LoadAll at startup.
//
// The store is single-writer by convention: only the component that just
// transitioned a record's status may persist it. Implementations must make
// Save atomic so a crash never leaves a half-written record on disk.
type TaskStore interface {
	// Save persists the current state of a task record, creating it if it
	// does not exist. The write must be atomic (write-to-temp then rename,
	// or a transactional commit).
	Save(ctx context.Context, task *domain.Task) error

	// LoadAll returns every persisted task record. Called once at startup;
	// records with unknown extra fields load cleanly, preserving forward
	// compatibility.
	LoadAll(ctx context.Context) ([]*domain.Task, error)

	// Delete removes a record by ID, used by the retention policy for
	// terminal records. Returns ErrTaskNotFound if the record does not
	// exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Package filestore persists task records as one JSON file per task.
//
// Writes are atomic: the record is written to a temp file in the same
// directory and renamed into place, so a crash never leaves a half-written
// record. Records are wrapped in a versioned envelope; unknown fields are
// ignored on load, allowing forward-compatible field addition.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/store"
)

// envelopeVersion is stamped into every persisted record so future readers
// can detect older layouts.
const envelopeVersion = 1

// recordEnvelope wraps a task record on disk.
type recordEnvelope struct {
	Version int          `json:"version"`
	Task    *domain.Task `json:"task"`
}

// FileStore implements store.TaskStore over a directory of JSON files.
type FileStore struct {
	dir string
}

// New creates a FileStore rooted at dir, creating the directory if needed.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory cannot be empty", store.ErrInvalidRecord)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create task store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save persists the record atomically via write-to-temp then rename.
func (s *FileStore) Save(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if task == nil || task.ID == uuid.Nil {
		return fmt.Errorf("%w: task must have an ID", store.ErrInvalidRecord)
	}

	data, err := json.Marshal(recordEnvelope{Version: envelopeVersion, Task: task})
	if err != nil {
		return fmt.Errorf("failed to encode task record: %w", err)
	}

	final := s.recordPath(task.ID)
	tmp, err := os.CreateTemp(s.dir, task.ID.String()+".*.tmp")
	if err != nil {
		log.Error("failed to create temp record file",
			"task_id", task.ID, "error", err)
		return fmt.Errorf("failed to create temp record file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write task record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync task record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp record file: %w", err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		log.Error("failed to commit task record",
			"task_id", task.ID, "error", err)
		return fmt.Errorf("failed to commit task record: %w", err)
	}

	return nil
}

// LoadAll returns every persisted record, ordered by creation time so
// recovery preserves FIFO within a priority level. Leftover temp files from
// interrupted writes are removed; unreadable records are skipped with a
// log line rather than failing startup.
func (s *FileStore) LoadAll(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read task store directory: %w", err)
	}

	var tasks []*domain.Task
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".tmp") {
			// Abandoned by a crash mid-write; the rename never happened.
			os.Remove(filepath.Join(s.dir, name))
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			log.Warn("failed to read task record file",
				"file", name, "error", err)
			continue
		}

		var envelope recordEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			log.Warn("failed to decode task record file",
				"file", name, "error", err)
			continue
		}
		if envelope.Task == nil {
			log.Warn("task record file has no task payload", "file", name)
			continue
		}
		tasks = append(tasks, envelope.Task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Delete removes a record file, returning store.ErrTaskNotFound when no
// record exists for the ID.
func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := os.Remove(s.recordPath(id)); err != nil {
		if os.IsNotExist(err) {
			return store.ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task record: %w", err)
	}
	return nil
}

func (s *FileStore) recordPath(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

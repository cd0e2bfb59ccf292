package task

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/store"
)

// memStore is an in-memory store.TaskStore for engine tests, with error
// injection for exercising best-effort persistence.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.Task
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]*domain.Task)}
}

func (s *memStore) Save(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records[task.ID] = task.Clone()
	return nil
}

func (s *memStore) LoadAll(ctx context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*domain.Task, 0, len(s.records))
	for _, t := range s.records {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.records, id)
	return nil
}

// get returns the persisted copy of a record, or nil.
func (s *memStore) get(id uuid.UUID) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[id]
	if !ok {
		return nil
	}
	return t.Clone()
}

// seed inserts a record directly, bypassing Save accounting.
func (s *memStore) seed(task *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[task.ID] = task.Clone()
}

// setSaveErr injects a persistence failure for subsequent Save calls.
func (s *memStore) setSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

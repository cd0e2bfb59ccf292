package task

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskboard/internal/domain"
)

func TestPriorityQueue_PriorityDominates(t *testing.T) {
	t.Parallel()

	q := NewPriorityQueue()
	low := uuid.New()
	med := uuid.New()
	high := uuid.New()

	require.NoError(t, q.Enqueue(low, domain.TaskPriorityLow))
	require.NoError(t, q.Enqueue(med, domain.TaskPriorityMedium))
	require.NoError(t, q.Enqueue(high, domain.TaskPriorityHigh))

	for _, want := range []uuid.UUID{high, med, low} {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueue_FIFOWithinPriority(t *testing.T) {
	t.Parallel()

	q := NewPriorityQueue()
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Enqueue(ids[i], domain.TaskPriorityMedium))
	}

	for _, want := range ids {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got, "equal-priority tasks must dequeue in submission order")
	}
}

func TestPriorityQueue_DuplicateRejected(t *testing.T) {
	t.Parallel()

	q := NewPriorityQueue()
	id := uuid.New()

	require.NoError(t, q.Enqueue(id, domain.TaskPriorityHigh))
	err := q.Enqueue(id, domain.TaskPriorityHigh)
	assert.ErrorIs(t, err, ErrDuplicateTask)

	// Once dequeued the ID may be re-enqueued, which is how retries
	// return a task to the pending pool.
	got, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, id, got)
	assert.NoError(t, q.Enqueue(id, domain.TaskPriorityLow))
}

func TestPriorityQueue_InvalidPriority(t *testing.T) {
	t.Parallel()

	q := NewPriorityQueue()
	err := q.Enqueue(uuid.New(), domain.TaskPriority("urgent"))
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueue_Remove(t *testing.T) {
	t.Parallel()

	q := NewPriorityQueue()
	keep := uuid.New()
	drop := uuid.New()
	require.NoError(t, q.Enqueue(keep, domain.TaskPriorityMedium))
	require.NoError(t, q.Enqueue(drop, domain.TaskPriorityHigh))

	assert.True(t, q.Remove(drop))
	assert.False(t, q.Remove(drop), "second removal of the same ID")
	assert.False(t, q.Remove(uuid.New()), "removal of an unknown ID")

	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, keep, got)
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	t.Parallel()

	q := NewPriorityQueue()
	id := uuid.New()
	got := make(chan uuid.UUID, 1)

	go func() {
		v, ok := q.Dequeue()
		if ok {
			got <- v
		}
	}()

	// Give the goroutine a moment to block, then satisfy it.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(id, domain.TaskPriorityLow))

	select {
	case v := <-got:
		assert.Equal(t, id, v)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Dequeue never observed the enqueue")
	}
}

func TestPriorityQueue_CloseUnblocksDequeue(t *testing.T) {
	t.Parallel()

	q := NewPriorityQueue()
	done := make(chan bool, 1)

	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok, "Dequeue must report closed")
	case <-time.After(2 * time.Second):
		t.Fatal("Dequeue did not return after Close")
	}

	assert.ErrorIs(t, q.Enqueue(uuid.New(), domain.TaskPriorityHigh), ErrQueueClosed)
}

func TestPriorityQueue_ConcurrentEnqueueDequeue(t *testing.T) {
	t.Parallel()

	const n = 100
	q := NewPriorityQueue()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(uuid.New(), domain.TaskPriorityMedium)
		}()
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool, n)
	for i := 0; i < n; i++ {
		id, ok := q.Dequeue()
		require.True(t, ok)
		assert.False(t, seen[id], "dequeued the same ID twice")
		seen[id] = true
	}
	assert.Equal(t, 0, q.Len())
}

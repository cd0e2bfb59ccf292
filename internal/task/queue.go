package task

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard/internal/domain"
)

// queueItem is one pending task ID in the priority queue.
type queueItem struct {
	id     uuid.UUID
	weight int
	seq    uint64
	index  int
}

// queueHeap orders items by priority weight descending, then by submission
// sequence ascending. The sequence number makes the FIFO tie-break within a
// priority level strict even under concurrent enqueues: it is assigned
// under the queue lock at enqueue time.
type queueHeap []*queueItem

func (h queueHeap) Len() int { return len(h) }

func (h queueHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight > h[j].weight
	}
	return h[i].seq < h[j].seq
}

func (h queueHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *queueHeap) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *queueHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// PriorityQueue orders pending task IDs for dispatch. Priority strictly
// dominates: a high task always dequeues before a medium one regardless of
// submission order. Within one priority level ordering is FIFO by
// submission. Dequeue blocks while the queue is empty.
type PriorityQueue struct {
	mu     sync.Mutex
	notify *sync.Cond
	items  queueHeap
	byID   map[uuid.UUID]*queueItem
	seq    uint64
	closed bool
}

// NewPriorityQueue creates an empty, open priority queue.
func NewPriorityQueue() *PriorityQueue {
	q := &PriorityQueue{
		byID: make(map[uuid.UUID]*queueItem),
	}
	q.notify = sync.NewCond(&q.mu)
	return q
}

// Enqueue inserts a task ID with the given priority. Duplicate IDs are
// rejected with ErrDuplicateTask; an ID may be re-enqueued once dequeued,
// which is how retries return a task to the pending pool.
func (q *PriorityQueue) Enqueue(id uuid.UUID, priority domain.TaskPriority) error {
	if !priority.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPriority, priority)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if _, exists := q.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, id)
	}

	q.seq++
	item := &queueItem{
		id:     id,
		weight: priority.Weight(),
		seq:    q.seq,
	}
	heap.Push(&q.items, item)
	q.byID[id] = item

	q.notify.Signal()
	return nil
}

// Dequeue removes and returns the highest-priority, earliest-submitted task
// ID, blocking while the queue is empty. The second return value is false
// once the queue has been closed; remaining items are abandoned to the
// store's recovery path.
func (q *PriorityQueue) Dequeue() (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.notify.Wait()
	}
	if q.closed {
		return uuid.Nil, false
	}

	item := heap.Pop(&q.items).(*queueItem)
	delete(q.byID, item.id)
	return item.id, true
}

// Remove pulls a still-queued task ID out before a worker claims it,
// returning whether the ID was present. Used by cancel.
func (q *PriorityQueue) Remove(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, exists := q.byID[id]
	if !exists {
		return false
	}
	heap.Remove(&q.items, item.index)
	delete(q.byID, id)
	return true
}

// Len returns the number of queued task IDs.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close shuts the queue down. Blocked Dequeue calls return immediately and
// further Enqueue calls fail with ErrQueueClosed.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notify.Broadcast()
}

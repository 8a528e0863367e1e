package queue

import (
	"fmt"
	"sync"
)

// InMemoryQueue implements a bounded in-memory queue safe for use from
// multiple goroutines.
type InMemoryQueue struct {
	lock    sync.Mutex
	items   []interface{}
	maxSize int
}

var _ Queue = &InMemoryQueue{}

// NewInMemoryQueue creates a new queue holding at most maxSize items.
func NewInMemoryQueue(maxSize int) *InMemoryQueue {
	return &InMemoryQueue{
		maxSize: maxSize,
	}
}

// Enqueue adds an item to the end of the queue.
func (q *InMemoryQueue) Enqueue(item interface{}) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.items) >= q.maxSize {
		return fmt.Errorf("queue is full (%d items)", q.maxSize)
	}
	q.items = append(q.items, item)
	return nil
}

// Dequeue removes and returns the item from the front of the queue.
func (q *InMemoryQueue) Dequeue() (interface{}, error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.items) == 0 {
		return nil, fmt.Errorf("queue is empty")
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, nil
}

// Size returns the current size of the queue.
func (q *InMemoryQueue) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.items)
}

// ReadAllMessages returns all pending items in FIFO order and empties the queue.
func (q *InMemoryQueue) ReadAllMessages() ([]interface{}, error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	items := q.items
	q.items = nil
	return items, nil
}

// ClearQueue discards all pending items.
func (q *InMemoryQueue) ClearQueue() error {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.items = nil
	return nil
}

// Package memory provides queue and set implementations for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sievesearch/sieve/internal/pipeline"
)

// Queue is a bounded in-memory multi-list queue with context-aware blocking
// pops, mirroring the Redis client's semantics.
type Queue struct {
	capacity int

	mu    sync.Mutex
	lists map[string]chan []byte
}

// NewQueue constructs a queue whose per-key lists hold up to capacity items.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		lists:    make(map[string]chan []byte),
	}
}

func (q *Queue) list(key string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.lists[key]
	if !ok {
		ch = make(chan []byte, q.capacity)
		q.lists[key] = ch
	}
	return ch
}

// BLPop pops the next item, blocking until one arrives, the timeout elapses
// (zero means wait indefinitely), or the context ends.
func (q *Queue) BLPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	ch := q.list(key)

	var expire <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expire = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("blpop canceled: %w", ctx.Err())
	case <-expire:
		return nil, pipeline.ErrQueueEmpty
	case item := <-ch:
		return item, nil
	}
}

// LPop pops the next item without blocking.
func (q *Queue) LPop(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("lpop canceled: %w", ctx.Err())
	case item := <-q.list(key):
		return item, nil
	default:
		return nil, pipeline.ErrQueueEmpty
	}
}

// RPush appends values, blocking if the list is at capacity.
func (q *Queue) RPush(ctx context.Context, key string, values ...[]byte) error {
	ch := q.list(key)
	for _, v := range values {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rpush canceled: %w", ctx.Err())
		case ch <- v:
		}
	}
	return nil
}

// Len reports the number of queued items for key.
func (q *Queue) Len(key string) int {
	return len(q.list(key))
}

// Set is an in-memory membership set keyed like Redis sets.
type Set struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

// NewSet constructs an empty Set.
func NewSet() *Set {
	return &Set{sets: make(map[string]map[string]struct{})}
}

// Add inserts member into the set at key.
func (s *Set) Add(_ context.Context, key string, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

// Members returns the members of the set at key.
func (s *Set) Members(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	return members
}

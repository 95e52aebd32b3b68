package mutable

import (
	"context"
	"errors"
)

// DefaultQueueSize is enough for a burst of parameter changes between two
// blocks.
const DefaultQueueSize = 64

// ErrQueueFull is returned when mutation can't be pushed without blocking.
var ErrQueueFull = errors.New("mutation queue is full")

// Queue delivers mutations to the real-time thread. Any number of goroutines
// can push, only the owner of mutated objects applies.
type Queue struct {
	mutations chan Mutation
}

// NewQueue returns queue with provided capacity. Non-positive size means
// DefaultQueueSize.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		mutations: make(chan Mutation, size),
	}
}

// Push adds mutations to the queue without blocking. If the queue is full,
// ErrQueueFull is returned and the rest of mutations is discarded.
func (q *Queue) Push(mutations ...Mutation) error {
	for _, m := range mutations {
		select {
		case q.mutations <- m:
		default:
			return ErrQueueFull
		}
	}
	return nil
}

// PushContext waits until every mutation is queued or context is done.
func (q *Queue) PushContext(ctx context.Context, mutations ...Mutation) error {
	for _, m := range mutations {
		select {
		case q.mutations <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Apply applies pending mutations without blocking. All mutations are
// applied even if some fail, the first error is returned.
func (q *Queue) Apply() error {
	var err error
	for {
		select {
		case m := <-q.mutations:
			if mErr := m.Apply(); mErr != nil && err == nil {
				err = mErr
			}
		default:
			return err
		}
	}
}

// Len returns number of pending mutations.
func (q *Queue) Len() int {
	return len(q.mutations)
}

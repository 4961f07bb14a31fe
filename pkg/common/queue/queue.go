// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"fmt"
)

// EmptyQueueError is returned when popping from a queue without items.
type EmptyQueueError struct {
	name string
}

func (e EmptyQueueError) Error() string {
	return fmt.Sprintf("queue %s is empty", e.name)
}

// Queue defines the interface of an in-memory FIFO item queue.
type Queue[T any] interface {
	GetName() string
	Enqueue(item T)
	// Dequeue pops the head of the queue.
	Dequeue() (T, error)
	// Peek returns the head of the queue without removing it.
	Peek() (T, bool)
	// PopFirst removes and returns the first item, in FIFO order, for which
	// match returns true.
	PopFirst(match func(T) bool) (T, bool)
	// Find returns the first item for which match returns true together
	// with its position, without removing it.
	Find(match func(T) bool) (T, Position, bool)
	// Remove removes the item at the position returned by Find. It returns
	// false if the item was removed already.
	Remove(pos Position) bool
	// Items returns the queued items in FIFO order.
	Items() []T
	Length() int
}

// Position identifies a queued item. It stays valid until the item is
// removed.
type Position int

// queue implements the Queue interface on top of a slice. Items removed from
// the head advance the offset instead of shifting the slice, so a sequence of
// head pops stays linear in the number of items.
type queue[T any] struct {
	name  string
	items []T
	// live marks items that have not been popped yet.
	live []bool
	head int
	size int
}

// NewQueue creates a new in-memory FIFO queue.
func NewQueue[T any](name string) Queue[T] {
	return &queue[T]{name: name}
}

// GetName returns the name of the queue
func (q *queue[T]) GetName() string {
	return q.name
}

// Enqueue appends an item to the tail of the queue
func (q *queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
	q.live = append(q.live, true)
	q.size++
}

// Dequeue pops the head of the queue
func (q *queue[T]) Dequeue() (T, error) {
	item, ok := q.PopFirst(func(T) bool { return true })
	if !ok {
		return item, EmptyQueueError{name: q.name}
	}
	return item, nil
}

// Peek returns the head of the queue
func (q *queue[T]) Peek() (T, bool) {
	q.advance()
	if q.head >= len(q.items) {
		var zero T
		return zero, false
	}
	return q.items[q.head], true
}

// PopFirst removes the first matching item
func (q *queue[T]) PopFirst(match func(T) bool) (T, bool) {
	item, pos, ok := q.Find(match)
	if ok {
		q.remove(int(pos))
	}
	return item, ok
}

// Find returns the first matching item
func (q *queue[T]) Find(match func(T) bool) (T, Position, bool) {
	q.advance()
	for i := q.head; i < len(q.items); i++ {
		if q.live[i] && match(q.items[i]) {
			return q.items[i], Position(i), true
		}
	}
	var zero T
	return zero, -1, false
}

// Remove removes the item at the position
func (q *queue[T]) Remove(pos Position) bool {
	i := int(pos)
	if i < q.head || i >= len(q.items) || !q.live[i] {
		return false
	}
	q.remove(i)
	return true
}

// Items returns the live items in FIFO order
func (q *queue[T]) Items() []T {
	result := make([]T, 0, q.size)
	for i := q.head; i < len(q.items); i++ {
		if q.live[i] {
			result = append(result, q.items[i])
		}
	}
	return result
}

// Length returns the number of queued items
func (q *queue[T]) Length() int {
	return q.size
}

func (q *queue[T]) remove(i int) {
	var zero T
	q.items[i] = zero
	q.live[i] = false
	q.size--
	q.advance()
	if q.size == 0 {
		q.items = q.items[:0]
		q.live = q.live[:0]
		q.head = 0
	}
}

// advance moves the head past popped items.
func (q *queue[T]) advance() {
	for q.head < len(q.items) && !q.live[q.head] {
		q.head++
	}
}

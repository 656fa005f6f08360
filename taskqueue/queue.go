/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package taskqueue serializes all shared-state access of the connector onto
// one goroutine. Inbound signals, user operations and asynchronous I/O
// completions are enqueued as tasks and run strictly one at a time to
// completion, which makes the single-writer discipline of the call store a
// structural property instead of a locking convention.
package taskqueue

import "sync"

// defaultBuffer is the task channel capacity. Dispatch blocks once the
// backlog exceeds it, which applies natural backpressure to a runaway feed.
const defaultBuffer = 256

// Queue is a single-goroutine ordered task executor.
type Queue struct {
	mu     sync.Mutex
	tasks  chan func()
	quit   chan struct{}
	done   chan struct{}
	closed bool
}

// New creates a Queue and starts its processing goroutine.
func New() *Queue {
	q := &Queue{
		tasks: make(chan func(), defaultBuffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case task := <-q.tasks:
			task()
		case <-q.quit:
			// Drain tasks already enqueued before the close.
			for {
				select {
				case task := <-q.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// Dispatch enqueues a task for ordered execution. It reports false if the
// queue has been closed, in which case the task is discarded.
func (q *Queue) Dispatch(task func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.mu.Unlock()

	select {
	case q.tasks <- task:
		return true
	case <-q.quit:
		return false
	}
}

// Flush blocks until every task enqueued before it has run. It is a
// sequencing barrier for tests and orderly shutdown.
func (q *Queue) Flush() {
	ch := make(chan struct{})
	if !q.Dispatch(func() { close(ch) }) {
		return
	}
	<-ch
}

// Close stops the queue after draining already-enqueued tasks. Further
// Dispatch calls are no-ops. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()
	<-q.done
}

// Copyright (c) 2020 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package pipeline holds the cafe's shared state: the waiting, brewing, and
// tray stages, the per-category capacity counters, and the customer
// registry. Every container is safe for concurrent use.
package pipeline

import (
	"sync"

	"github.com/brewpipe/cafed/order"
)

// Waiting is the unbounded FIFO queue of tickets that have not started
// brewing. Dequeue blocks until a ticket is available or the queue closes.
type Waiting struct {
	mu     sync.Mutex
	cond   *sync.Cond
	q      []*order.Ticket
	closed bool
}

// NewWaiting returns an empty waiting queue.
func NewWaiting() *Waiting {
	w := &Waiting{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Enqueue appends a ticket to the tail and wakes one blocked Dequeue.
// Enqueueing on a closed queue drops the ticket.
func (w *Waiting) Enqueue(t *order.Ticket) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.q = append(w.q, t)
	w.cond.Signal()
}

// Dequeue removes and returns the head ticket, blocking while the queue is
// empty. The second return is false once the queue has closed and drained.
func (w *Waiting) Dequeue() (*order.Ticket, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.q) == 0 && !w.closed {
		w.cond.Wait()
	}
	if len(w.q) == 0 {
		return nil, false
	}
	t := w.q[0]
	w.q = w.q[1:]
	return t, true
}

// Contains reports whether a ticket with the given instance key is queued.
func (w *Waiting) Contains(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.q {
		if t.Key() == key {
			return true
		}
	}
	return false
}

// Len returns the number of queued tickets.
func (w *Waiting) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.q)
}

// Close unblocks all pending and future Dequeue calls. Tickets still queued
// are returned by Dequeue until the queue is drained; later Enqueue calls
// drop their tickets.
func (w *Waiting) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.cond.Broadcast()
}

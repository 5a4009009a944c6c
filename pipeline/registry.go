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

package pipeline

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// Registry tracks which customer ids are connected and which customers are
// idle (owe nothing they have not collected). The idle map is a projection
// for the stats dashboard; each session's own state drives protocol
// decisions.
type Registry struct {
	mu        sync.RWMutex
	active    map[int64]struct{}
	idle      map[int64]string
	connected atomic.Int32
}

// NewRegistry returns an empty customer registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[int64]struct{}),
		idle:   make(map[int64]string),
	}
}

// Register records a newly connected customer and bumps the connected
// counter. It rejects an id that is already active; the first session wins.
func (r *Registry) Register(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		return fmt.Errorf("customer id %d is already connected", id)
	}
	r.active[id] = struct{}{}
	r.connected.Inc()
	return nil
}

// Deregister removes a customer on session end and decrements the
// connected counter. Unknown ids are ignored.
func (r *Registry) Deregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; !ok {
		return
	}
	delete(r.active, id)
	delete(r.idle, id)
	r.connected.Dec()
}

// SetIdle marks a connected customer as idle.
func (r *Registry) SetIdle(id int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		r.idle[id] = name
	}
}

// ClearIdle removes a customer's idle marker when they place a new order.
func (r *Registry) ClearIdle(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.idle, id)
}

// ActiveSnapshot returns a copy of the set of connected customer ids.
func (r *Registry) ActiveSnapshot() map[int64]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]struct{}, len(r.active))
	for id := range r.active {
		out[id] = struct{}{}
	}
	return out
}

// IdleCount returns the number of idle customers.
func (r *Registry) IdleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.idle)
}

// Connected returns the connected-client counter.
func (r *Registry) Connected() int {
	return int(r.connected.Load())
}

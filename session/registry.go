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

package session

import "sync"

// Registry maps connected customer ids to their session handlers so that
// brew workers can deliver notifications without holding a reference to a
// handler that may already be gone.
type Registry struct {
	mu sync.RWMutex
	m  map[int64]*Handler
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[int64]*Handler)}
}

func (r *Registry) add(h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[h.customer.ID] = h
}

func (r *Registry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
}

// Notify delivers an asynchronous message to the session owning the given
// customer id. It returns false when no live session exists; the message is
// dropped in that case.
func (r *Registry) Notify(owner int64, message string) bool {
	r.mu.RLock()
	h, ok := r.m[owner]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return h.Notify(message)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

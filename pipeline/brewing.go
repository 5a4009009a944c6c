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
	"sync"

	"github.com/brewpipe/cafed/order"
)

// Brewing tracks tickets currently held by brew workers, keyed by instance
// key. Presence of a key means "currently brewing".
type Brewing struct {
	mu sync.RWMutex
	m  map[string]*order.Ticket
}

// NewBrewing returns an empty brewing stage.
func NewBrewing() *Brewing {
	return &Brewing{m: make(map[string]*order.Ticket)}
}

// Insert marks a ticket as brewing.
func (b *Brewing) Insert(t *order.Ticket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[t.Key()] = t
}

// Remove clears a ticket's brewing marker.
func (b *Brewing) Remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
}

// Contains reports whether the key is currently brewing.
func (b *Brewing) Contains(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.m[key]
	return ok
}

// Len returns the number of tickets currently brewing.
func (b *Brewing) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}

// CountCategory returns the number of brewing tickets of one category.
func (b *Brewing) CountCategory(c order.Category) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, t := range b.m {
		if t.Category() == c {
			n++
		}
	}
	return n
}

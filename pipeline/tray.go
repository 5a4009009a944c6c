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

// Tray holds completed tickets awaiting pickup, in completion order.
type Tray struct {
	mu sync.Mutex
	q  []*order.Ticket
}

// NewTray returns an empty tray.
func NewTray() *Tray {
	return &Tray{}
}

// Enqueue places a completed ticket on the tray.
func (t *Tray) Enqueue(tk *order.Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.q = append(t.q, tk)
}

// Contains reports whether a ticket with the given instance key is on the
// tray.
func (t *Tray) Contains(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexOf(key) >= 0
}

// TakeAll atomically removes the tickets with the given keys. If any key is
// absent, the tray is left untouched and TakeAll returns false.
func (t *Tray) TakeAll(keys []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := make([]int, 0, len(keys))
	for _, key := range keys {
		i := t.indexOf(key)
		if i < 0 {
			return false
		}
		idx = append(idx, i)
	}

	taken := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		taken[i] = struct{}{}
	}
	remaining := t.q[:0]
	for i, tk := range t.q {
		if _, ok := taken[i]; !ok {
			remaining = append(remaining, tk)
		}
	}
	t.q = remaining
	return true
}

// Reclaim looks for a ticket of the given category whose owner is not in
// the active set, and replaces it in place with a ticket owned by newOwner.
// It returns the replacement ticket, or false when no orphan matched.
//
// Callers snapshot the active set before calling so the tray lock is the
// only lock held during the scan.
func (t *Tray) Reclaim(c order.Category, active map[int64]struct{}, newOwner int64) (*order.Ticket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, tk := range t.q {
		if tk.Category() != c {
			continue
		}
		if _, ok := active[tk.Owner()]; ok {
			continue
		}
		replacement := tk.Reassign(newOwner)
		t.q[i] = replacement
		return replacement, true
	}
	return nil, false
}

// Len returns the number of tickets awaiting pickup.
func (t *Tray) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.q)
}

// Keys returns the instance keys currently on the tray, in order.
func (t *Tray) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, len(t.q))
	for i, tk := range t.q {
		keys[i] = tk.Key()
	}
	return keys
}

func (t *Tray) indexOf(key string) int {
	for i, tk := range t.q {
		if tk.Key() == key {
			return i
		}
	}
	return -1
}

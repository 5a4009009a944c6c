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
	"go.uber.org/atomic"

	"github.com/brewpipe/cafed/order"
)

// DefaultCategoryCapacity is how many items of one category may brew at
// once unless configured otherwise.
const DefaultCategoryCapacity = 2

// Capacity tracks how many items of each category are currently brewing,
// bounded by a per-category ceiling.
type Capacity struct {
	limit    int32
	counters map[order.Category]*atomic.Int32
}

// NewCapacity returns counters for every category with the given ceiling.
func NewCapacity(limit int) *Capacity {
	if limit <= 0 {
		limit = DefaultCategoryCapacity
	}
	counters := make(map[order.Category]*atomic.Int32, len(order.Categories()))
	for _, c := range order.Categories() {
		counters[c] = atomic.NewInt32(0)
	}
	return &Capacity{limit: int32(limit), counters: counters}
}

// TryAcquire claims a brew slot for the category. It returns false when the
// category is saturated.
func (c *Capacity) TryAcquire(cat order.Category) bool {
	ctr := c.counters[cat]
	for {
		cur := ctr.Load()
		if cur >= c.limit {
			return false
		}
		if ctr.CAS(cur, cur+1) {
			return true
		}
	}
}

// Release returns a brew slot for the category.
func (c *Capacity) Release(cat order.Category) {
	c.counters[cat].Dec()
}

// InUse returns the number of claimed slots for the category.
func (c *Capacity) InUse(cat order.Category) int {
	return int(c.counters[cat].Load())
}

// Limit returns the per-category ceiling.
func (c *Capacity) Limit() int {
	return int(c.limit)
}

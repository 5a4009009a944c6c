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

package order

import (
	"fmt"

	"github.com/google/uuid"
)

// Ticket is the pipeline's unit of work: one item instance bound to the
// customer that ordered it. Every ticket carries a unique instance key, so
// two identical items from the same customer remain distinct entities as
// they move through the stages.
type Ticket struct {
	owner int64
	item  Item
	key   string
}

// NewTicket mints a ticket for owner's item with a fresh instance key.
func NewTicket(owner int64, item Item) *Ticket {
	return &Ticket{
		owner: owner,
		item:  item,
		key:   fmt.Sprintf("%d:%s:%s", owner, item, uuid.New()),
	}
}

// Owner returns the id of the customer the ticket belongs to.
func (t *Ticket) Owner() int64 { return t.owner }

// Item returns the item the ticket wraps.
func (t *Ticket) Item() Item { return t.item }

// Category returns the item's category.
func (t *Ticket) Category() Category { return t.item.Category }

// Key returns the ticket's unique instance key.
func (t *Ticket) Key() string { return t.key }

// Reassign mints a replacement ticket for the same item under a new owner.
// The replacement gets its own instance key.
func (t *Ticket) Reassign(owner int64) *Ticket {
	return NewTicket(owner, t.item)
}

func (t *Ticket) String() string {
	return t.key
}

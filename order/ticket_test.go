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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketKeysAreUnique(t *testing.T) {
	item := Item{Quantity: 1, Category: Tea}
	a := NewTicket(7, item)
	b := NewTicket(7, item)
	assert.NotEqual(t, a.Key(), b.Key(),
		"identical orders from one customer must stay distinct entities")
	assert.True(t, strings.HasPrefix(a.Key(), "7:1 tea:"))
}

func TestTicketAccessors(t *testing.T) {
	item := Item{Quantity: 2, Category: Coffee}
	tk := NewTicket(42, item)
	assert.Equal(t, int64(42), tk.Owner())
	assert.Equal(t, item, tk.Item())
	assert.Equal(t, Coffee, tk.Category())
}

func TestTicketReassign(t *testing.T) {
	tk := NewTicket(1, Item{Quantity: 1, Category: Tea})
	re := tk.Reassign(2)
	assert.Equal(t, int64(2), re.Owner())
	assert.Equal(t, tk.Item(), re.Item())
	assert.NotEqual(t, tk.Key(), re.Key())
}

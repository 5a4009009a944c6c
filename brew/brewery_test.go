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

package brew

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewpipe/cafed/internal/clock"
	"github.com/brewpipe/cafed/order"
	"github.com/brewpipe/cafed/pipeline"
)

// recordingNotifier captures notifications per owner.
type recordingNotifier struct {
	mu       sync.Mutex
	live     map[int64]bool
	messages []string
}

func (n *recordingNotifier) Notify(owner int64, message string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.live != nil && !n.live[owner] {
		return false
	}
	n.messages = append(n.messages, message)
	return true
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type fixture struct {
	brewing  *pipeline.Brewing
	tray     *pipeline.Tray
	capacity *pipeline.Capacity
	notifier *recordingNotifier
	clock    *clock.FakeClock
	brewery  *Brewery
}

func newFixture(t *testing.T, live map[int64]bool) *fixture {
	f := &fixture{
		brewing:  pipeline.NewBrewing(),
		tray:     pipeline.NewTray(),
		capacity: pipeline.NewCapacity(2),
		notifier: &recordingNotifier{live: live},
		clock:    clock.NewFake(),
	}
	f.brewery = New(Config{
		Workers:  2,
		Brewing:  f.brewing,
		Tray:     f.tray,
		Capacity: f.capacity,
		Sessions: f.notifier,
		Clock:    f.clock,
	})
	require.NoError(t, f.brewery.Start())
	return f
}

// submit claims a capacity slot the way the scheduler would, then hands the
// ticket to the pool.
func (f *fixture) submit(t *testing.T, tk *order.Ticket) {
	require.True(t, f.capacity.TryAcquire(tk.Category()))
	f.brewery.Submit(tk)
}

func TestBrewMovesTicketToTrayAndNotifies(t *testing.T) {
	f := newFixture(t, nil)
	defer func() { require.NoError(t, f.brewery.Stop()) }()

	tk := order.NewTicket(7, order.Item{Quantity: 1, Category: order.Tea})
	f.submit(t, tk)

	require.Eventually(t, func() bool { return f.brewing.Contains(tk.Key()) },
		time.Second, time.Millisecond, "ticket must enter the brewing stage")
	assert.Equal(t, 1, f.capacity.InUse(order.Tea))

	// Release the worker's 30s tea sleep.
	require.Eventually(t, func() bool { return f.clock.Waiters() == 1 },
		time.Second, time.Millisecond)
	f.clock.Advance(30 * time.Second)

	require.Eventually(t, func() bool { return f.tray.Contains(tk.Key()) },
		time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !f.brewing.Contains(tk.Key()) },
		time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return f.capacity.InUse(order.Tea) == 0 },
		time.Second, time.Millisecond)

	msgs := f.notifier.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "SERVER: Your 1 tea is ready for pickup!", msgs[0])
}

func TestBrewDurationsPerCategory(t *testing.T) {
	f := newFixture(t, nil)
	defer func() { require.NoError(t, f.brewery.Stop()) }()

	teaTk := order.NewTicket(1, order.Item{Quantity: 1, Category: order.Tea})
	coffeeTk := order.NewTicket(1, order.Item{Quantity: 1, Category: order.Coffee})
	f.submit(t, teaTk)
	f.submit(t, coffeeTk)

	require.Eventually(t, func() bool { return f.clock.Waiters() == 2 },
		time.Second, time.Millisecond)

	// 30s finishes the tea but not the 45s coffee.
	f.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return f.tray.Contains(teaTk.Key()) },
		time.Second, time.Millisecond)
	assert.False(t, f.tray.Contains(coffeeTk.Key()))
	assert.True(t, f.brewing.Contains(coffeeTk.Key()))

	f.clock.Advance(15 * time.Second)
	require.Eventually(t, func() bool { return f.tray.Contains(coffeeTk.Key()) },
		time.Second, time.Millisecond)
}

func TestBrewDropsNotificationForGoneSession(t *testing.T) {
	f := newFixture(t, map[int64]bool{})
	defer func() { require.NoError(t, f.brewery.Stop()) }()

	tk := order.NewTicket(99, order.Item{Quantity: 1, Category: order.Tea})
	f.submit(t, tk)

	require.Eventually(t, func() bool { return f.clock.Waiters() == 1 },
		time.Second, time.Millisecond)
	f.clock.Advance(30 * time.Second)

	// The item still lands on the tray for later reclamation.
	require.Eventually(t, func() bool { return f.tray.Contains(tk.Key()) },
		time.Second, time.Millisecond)
	assert.Empty(t, f.notifier.all())
}

func TestStopAbandonsInflightBrewAndRestoresCapacity(t *testing.T) {
	f := newFixture(t, nil)

	tk := order.NewTicket(1, order.Item{Quantity: 1, Category: order.Coffee})
	f.submit(t, tk)

	require.Eventually(t, func() bool { return f.brewing.Contains(tk.Key()) },
		time.Second, time.Millisecond)

	require.NoError(t, f.brewery.Stop())
	assert.False(t, f.brewing.Contains(tk.Key()), "abandoned brew must clear its marker")
	assert.False(t, f.tray.Contains(tk.Key()))
	assert.Equal(t, 0, f.capacity.InUse(order.Coffee),
		"capacity must be restored on every exit path")
	for _, m := range f.notifier.all() {
		assert.False(t, strings.Contains(m, "ready"), "abandoned brews must not notify")
	}
}

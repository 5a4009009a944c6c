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

// Package brew implements the bounded worker pool that executes brew jobs:
// it moves tickets from brewing to the tray and triggers the ready
// notification for each completed item.
package brew

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brewpipe/cafed/internal/clock"
	"github.com/brewpipe/cafed/internal/lifecycle"
	"github.com/brewpipe/cafed/order"
	"github.com/brewpipe/cafed/pipeline"
	"github.com/brewpipe/cafed/wire"
)

// DefaultWorkers is the brew pool size unless configured otherwise.
const DefaultWorkers = 4

// DefaultBrewTimes maps each category to its brew duration.
var DefaultBrewTimes = map[order.Category]time.Duration{
	order.Tea:    30 * time.Second,
	order.Coffee: 45 * time.Second,
}

// Notifier delivers an asynchronous message to the session owning a
// customer id, reporting whether a live session received it.
type Notifier interface {
	Notify(owner int64, message string) bool
}

// Config parameterizes a Brewery.
type Config struct {
	Workers   int
	BrewTimes map[order.Category]time.Duration
	Brewing   *pipeline.Brewing
	Tray      *pipeline.Tray
	Capacity  *pipeline.Capacity
	Sessions  Notifier
	Clock     clock.Clock
	Logger    *zap.Logger
}

// Brewery is the bounded pool of brew workers. The scheduler submits
// tickets whose capacity slot is already claimed; the brewery releases the
// slot when the ticket leaves the brewing stage, on every path.
type Brewery struct {
	workers   int
	brewTimes map[order.Category]time.Duration
	brewing   *pipeline.Brewing
	tray      *pipeline.Tray
	capacity  *pipeline.Capacity
	sessions  Notifier
	clock     clock.Clock
	logger    *zap.Logger

	jobs chan *order.Ticket
	once *lifecycle.Once
	wg   sync.WaitGroup
}

// New returns an unstarted brewery.
func New(cfg Config) *Brewery {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	brewTimes := cfg.BrewTimes
	if brewTimes == nil {
		brewTimes = DefaultBrewTimes
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Sized to the whole cafe's brew capacity so a submit with a claimed
	// slot never blocks, even when the pool is smaller than capacity.
	backlog := cfg.Capacity.Limit() * len(order.Categories())
	return &Brewery{
		workers:   workers,
		brewTimes: brewTimes,
		brewing:   cfg.Brewing,
		tray:      cfg.Tray,
		capacity:  cfg.Capacity,
		sessions:  cfg.Sessions,
		clock:     clk,
		logger:    logger,
		jobs:      make(chan *order.Ticket, backlog),
		once:      lifecycle.NewOnce(),
	}
}

// Start launches the worker pool.
func (b *Brewery) Start() error {
	return b.once.Start(func() error {
		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go b.worker(i)
		}
		return nil
	})
}

// Stop abandons in-flight brews and waits for all workers to exit. Jobs
// still queued give their capacity slots back.
func (b *Brewery) Stop() error {
	return b.once.Stop(func() error {
		b.wg.Wait()
		for {
			select {
			case t := <-b.jobs:
				b.capacity.Release(t.Category())
			default:
				return nil
			}
		}
	})
}

// Submit hands a ticket with a claimed capacity slot to the pool. The job
// queue holds one entry per capacity slot, so Submit does not block on busy
// workers. During shutdown the ticket is dropped and its slot released.
func (b *Brewery) Submit(t *order.Ticket) {
	select {
	case b.jobs <- t:
	case <-b.once.Stopping():
		b.capacity.Release(t.Category())
	}
}

func (b *Brewery) worker(i int) {
	defer b.wg.Done()
	logger := b.logger.With(zap.Int("worker", i))
	for {
		select {
		case t := <-b.jobs:
			b.brew(logger, t)
		case <-b.once.Stopping():
			return
		}
	}
}

func (b *Brewery) brew(logger *zap.Logger, t *order.Ticket) {
	defer b.capacity.Release(t.Category())

	b.brewing.Insert(t)
	logger.Debug("brewing started",
		zap.String("key", t.Key()),
		zap.String("category", string(t.Category())),
	)

	select {
	case <-b.clock.After(b.brewTime(t.Category())):
	case <-b.once.Stopping():
		b.brewing.Remove(t.Key())
		logger.Warn("brew abandoned at shutdown", zap.String("key", t.Key()))
		return
	}

	// Tray first, then clear the brewing marker, so no observer ever sees
	// the item in neither stage.
	b.tray.Enqueue(t)
	b.brewing.Remove(t.Key())

	if !b.sessions.Notify(t.Owner(), wire.NotifyReady(t.Item().String())) {
		logger.Debug("owner session gone, notification dropped", zap.String("key", t.Key()))
	}
	logger.Debug("brewing finished", zap.String("key", t.Key()))
}

func (b *Brewery) brewTime(c order.Category) time.Duration {
	if d, ok := b.brewTimes[c]; ok {
		return d
	}
	return DefaultBrewTimes[c]
}

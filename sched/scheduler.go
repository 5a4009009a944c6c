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

// Package sched implements the capacity-aware scheduler: the sole consumer
// of the waiting stage and the sole producer of brew jobs.
package sched

import (
	"time"

	"go.uber.org/zap"

	"github.com/brewpipe/cafed/internal/clock"
	"github.com/brewpipe/cafed/internal/lifecycle"
	"github.com/brewpipe/cafed/order"
	"github.com/brewpipe/cafed/pipeline"
)

// DefaultBackoff is how long the scheduler parks when the head ticket's
// category has no free brew slot.
const DefaultBackoff = 100 * time.Millisecond

// Dispatcher receives tickets whose capacity slot has been claimed.
type Dispatcher interface {
	Submit(t *order.Ticket)
}

// Config parameterizes a Scheduler.
type Config struct {
	Waiting    *pipeline.Waiting
	Capacity   *pipeline.Capacity
	Dispatcher Dispatcher
	Backoff    time.Duration
	Clock      clock.Clock
	Logger     *zap.Logger
}

// Scheduler drains the waiting queue in FIFO order, claims a per-category
// brew slot for each ticket, and hands claimed tickets to the dispatcher.
// When a category is saturated its head ticket is requeued at the tail, so
// items of other categories behind it are not blocked; FIFO is preserved
// within each category.
type Scheduler struct {
	waiting    *pipeline.Waiting
	capacity   *pipeline.Capacity
	dispatcher Dispatcher
	backoff    time.Duration
	clock      clock.Clock
	logger     *zap.Logger

	once *lifecycle.Once
	done chan struct{}
}

// New returns an unstarted scheduler.
func New(cfg Config) *Scheduler {
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		waiting:    cfg.Waiting,
		capacity:   cfg.Capacity,
		dispatcher: cfg.Dispatcher,
		backoff:    backoff,
		clock:      clk,
		logger:     logger,
		once:       lifecycle.NewOnce(),
		done:       make(chan struct{}),
	}
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() error {
	return s.once.Start(func() error {
		go s.run()
		return nil
	})
}

// Stop closes the waiting queue and waits for the loop to exit. Before it
// exits the loop drains the closed queue without backing off: a ticket that
// gets a free slot is still handed to the dispatcher, and a saturated one is
// dropped.
func (s *Scheduler) Stop() error {
	return s.once.Stop(func() error {
		s.waiting.Close()
		<-s.done
		return nil
	})
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		t, ok := s.waiting.Dequeue()
		if !ok {
			s.logger.Debug("scheduler stopping")
			return
		}

		if s.capacity.TryAcquire(t.Category()) {
			s.logger.Debug("dispatching brew job",
				zap.String("key", t.Key()),
				zap.String("category", string(t.Category())),
			)
			s.dispatcher.Submit(t)
			continue
		}

		// Saturated: rotate the head to the tail and give a brew time to
		// finish before looking again.
		s.waiting.Enqueue(t)
		select {
		case <-s.clock.After(s.backoff):
		case <-s.once.Stopping():
			// Loop once more; the closed queue ends the run.
		}
	}
}

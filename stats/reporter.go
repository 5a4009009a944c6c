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

// Package stats publishes the cafe's dashboard gauges on a fixed cadence:
// stage sizes, per-category capacity in use, and customer counts.
package stats

import (
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/brewpipe/cafed/internal/clock"
	"github.com/brewpipe/cafed/internal/lifecycle"
	"github.com/brewpipe/cafed/order"
	"github.com/brewpipe/cafed/pipeline"
)

// DefaultInterval is the dashboard refresh cadence.
const DefaultInterval = 10 * time.Second

// Config parameterizes a Reporter.
type Config struct {
	Scope     tally.Scope
	Interval  time.Duration
	Waiting   *pipeline.Waiting
	Brewing   *pipeline.Brewing
	Tray      *pipeline.Tray
	Capacity  *pipeline.Capacity
	Customers *pipeline.Registry
	Clock     clock.Clock
	Logger    *zap.Logger
}

// Reporter periodically samples the pipeline and pushes gauges into a tally
// scope. It contributes no behavior to the pipeline itself.
type Reporter struct {
	scope     tally.Scope
	interval  time.Duration
	waiting   *pipeline.Waiting
	brewing   *pipeline.Brewing
	tray      *pipeline.Tray
	capacity  *pipeline.Capacity
	customers *pipeline.Registry
	clock     clock.Clock
	logger    *zap.Logger

	once *lifecycle.Once
	done chan struct{}
}

// New returns an unstarted reporter.
func New(cfg Config) *Reporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		scope:     cfg.Scope,
		interval:  interval,
		waiting:   cfg.Waiting,
		brewing:   cfg.Brewing,
		tray:      cfg.Tray,
		capacity:  cfg.Capacity,
		customers: cfg.Customers,
		clock:     clk,
		logger:    logger,
		once:      lifecycle.NewOnce(),
		done:      make(chan struct{}),
	}
}

// Start launches the sampling loop.
func (r *Reporter) Start() error {
	return r.once.Start(func() error {
		r.logger.Debug("dashboard reporting started", zap.Duration("interval", r.interval))
		go r.run()
		return nil
	})
}

// Stop halts the sampling loop.
func (r *Reporter) Stop() error {
	return r.once.Stop(func() error {
		<-r.done
		return nil
	})
}

func (r *Reporter) run() {
	defer close(r.done)
	for {
		select {
		case <-r.clock.After(r.interval):
			r.Report()
		case <-r.once.Stopping():
			return
		}
	}
}

// Report samples every gauge once.
func (r *Reporter) Report() {
	r.scope.Gauge("waiting").Update(float64(r.waiting.Len()))
	r.scope.Gauge("brewing").Update(float64(r.brewing.Len()))
	r.scope.Gauge("tray").Update(float64(r.tray.Len()))
	r.scope.Gauge("connected").Update(float64(r.customers.Connected()))
	r.scope.Gauge("idle").Update(float64(r.customers.IdleCount()))
	for _, c := range order.Categories() {
		r.scope.
			Tagged(map[string]string{"category": string(c)}).
			Gauge("capacity_in_use").
			Update(float64(r.capacity.InUse(c)))
	}
}

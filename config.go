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

package cafed

import (
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/brewpipe/cafed/cafedconfig"
	"github.com/brewpipe/cafed/internal/clock"
	"github.com/brewpipe/cafed/order"
)

// Config specifies the parameters of a Server constructed via New.
type Config struct {
	// ListenAddr is the TCP address the acceptor binds. Defaults to ":8888".
	ListenAddr string

	// SessionLimit bounds concurrent customer sessions. Defaults to 10.
	SessionLimit int

	// BrewWorkers sizes the brew pool. Defaults to 4.
	BrewWorkers int

	// CategoryCapacity is the per-category concurrent brew ceiling.
	// Defaults to 2.
	CategoryCapacity int

	// RequeueBackoff is the scheduler's sleep when the head category is
	// saturated. Defaults to 100ms.
	RequeueBackoff time.Duration

	// BrewTimes overrides per-category brew durations.
	BrewTimes map[order.Category]time.Duration

	// StatsInterval is the dashboard cadence; zero disables the dashboard.
	StatsInterval time.Duration

	// Scope receives dashboard gauges. Ignored when StatsInterval is zero.
	Scope tally.Scope

	// Clock drives brew durations and backoffs. Defaults to wall time.
	Clock clock.Clock

	// Logger receives server logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// ConfigFrom maps a loaded cafedconfig.Config onto a server Config.
func ConfigFrom(fc cafedconfig.Config) Config {
	return Config{
		ListenAddr:       fc.ListenAddr,
		SessionLimit:     fc.SessionLimit,
		BrewWorkers:      fc.BrewWorkers,
		CategoryCapacity: fc.CategoryCapacity,
		RequeueBackoff:   fc.RequeueBackoff,
		BrewTimes: map[order.Category]time.Duration{
			order.Tea:    fc.TeaBrewTime,
			order.Coffee: fc.CoffeeBrewTime,
		},
		StatsInterval: fc.StatsInterval,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8888"
	}
	if cfg.SessionLimit <= 0 {
		cfg.SessionLimit = 10
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewReal()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Scope == nil {
		cfg.Scope = tally.NoopScope
	}
	return cfg
}

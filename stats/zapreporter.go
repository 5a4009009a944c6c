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

package stats

import (
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// ZapReporter is a tally StatsReporter that renders the dashboard through a
// zap logger, for deployments without a metrics backend.
type ZapReporter struct {
	logger *zap.Logger
}

var _ tally.StatsReporter = (*ZapReporter)(nil)

// NewZapReporter returns a reporter logging through the given logger.
func NewZapReporter(logger *zap.Logger) *ZapReporter {
	return &ZapReporter{logger: logger}
}

// ReportCounter logs a counter sample.
func (r *ZapReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.logger.Info("counter", zap.String("name", name), zap.Any("tags", tags), zap.Int64("value", value))
}

// ReportGauge logs a gauge sample.
func (r *ZapReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.logger.Info("gauge", zap.String("name", name), zap.Any("tags", tags), zap.Float64("value", value))
}

// ReportTimer logs a timer sample.
func (r *ZapReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.logger.Info("timer", zap.String("name", name), zap.Any("tags", tags), zap.Duration("interval", interval))
}

// ReportHistogramValueSamples logs histogram value samples.
func (r *ZapReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound, bucketUpperBound float64,
	samples int64,
) {
	r.logger.Info("histogram",
		zap.String("name", name),
		zap.Any("tags", tags),
		zap.Float64("lower", bucketLowerBound),
		zap.Float64("upper", bucketUpperBound),
		zap.Int64("samples", samples),
	)
}

// ReportHistogramDurationSamples logs histogram duration samples.
func (r *ZapReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound, bucketUpperBound time.Duration,
	samples int64,
) {
	r.logger.Info("histogram",
		zap.String("name", name),
		zap.Any("tags", tags),
		zap.Duration("lower", bucketLowerBound),
		zap.Duration("upper", bucketUpperBound),
		zap.Int64("samples", samples),
	)
}

// Capabilities reports that the reporter supports tagging.
func (r *ZapReporter) Capabilities() tally.Capabilities {
	return capabilities{}
}

// Flush is a no-op; zap handles its own sync.
func (r *ZapReporter) Flush() {}

type capabilities struct{}

func (capabilities) Reporting() bool { return true }
func (capabilities) Tagging() bool   { return true }

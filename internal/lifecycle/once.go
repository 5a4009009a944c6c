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

// Package lifecycle provides a helper for objects that advance monotonically
// through start and stop with at-most-once semantics.
package lifecycle

import (
	syncatomic "sync/atomic"

	"go.uber.org/atomic"
)

// State is a position in the lifecycle of a started/stopped object.
type State int32

const (
	// Idle indicates the object has not been operated on yet.
	Idle State = iota

	// Starting indicates the start function is running.
	Starting

	// Running indicates start finished without error.
	Running

	// Stopping indicates the stop function is running.
	Stopping

	// Stopped indicates stop finished, or the object was stopped before it
	// ever started.
	Stopped

	// Errored indicates start or stop returned an error.
	Errored
)

// Once drives an object through its lifecycle, guaranteeing that the start
// and stop functions each run at most once, and that the observable state
// only moves forward.
type Once struct {
	startCh    chan struct{}
	stoppingCh chan struct{}
	stopCh     chan struct{}
	err        syncatomic.Value
	state      atomic.Int32
}

// NewOnce returns a lifecycle controller.
func NewOnce() *Once {
	return &Once{
		startCh:    make(chan struct{}),
		stoppingCh: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

// Start runs f once. Concurrent and subsequent calls block until the first
// completes and return its error.
func (o *Once) Start(f func() error) error {
	if o.state.CAS(int32(Idle), int32(Starting)) {
		var err error
		if f != nil {
			err = f()
		}
		if err != nil {
			o.setError(err)
			o.state.Store(int32(Errored))
			close(o.stoppingCh)
			close(o.stopCh)
		} else {
			o.state.Store(int32(Running))
		}
		close(o.startCh)
		return err
	}

	<-o.startCh
	return o.loadError()
}

// Stop runs f once, after any in-flight Start completes. Stopping an object
// that never started is a no-op.
func (o *Once) Stop(f func() error) error {
	if o.state.CAS(int32(Idle), int32(Stopped)) {
		close(o.startCh)
		close(o.stoppingCh)
		close(o.stopCh)
		return nil
	}

	<-o.startCh

	if o.state.CAS(int32(Running), int32(Stopping)) {
		close(o.stoppingCh)

		var err error
		if f != nil {
			err = f()
		}
		if err != nil {
			o.setError(err)
			o.state.Store(int32(Errored))
		} else {
			o.state.Store(int32(Stopped))
		}
		close(o.stopCh)
		return err
	}

	<-o.stopCh
	return o.loadError()
}

// Stopping returns a channel that closes as soon as a stop begins.
// Long-running goroutines select on it to learn about shutdown.
func (o *Once) Stopping() <-chan struct{} {
	return o.stoppingCh
}

// State returns the current lifecycle state.
func (o *Once) State() State {
	return State(o.state.Load())
}

// IsRunning reports whether the object is in the Running state.
func (o *Once) IsRunning() bool {
	return o.State() == Running
}

func (o *Once) setError(err error) {
	o.err.Store(err)
}

func (o *Once) loadError() error {
	if err, ok := o.err.Load().(error); ok {
		return err
	}
	return nil
}

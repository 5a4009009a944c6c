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

package lifecycle

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnceStartRunsOnce(t *testing.T) {
	o := NewOnce()
	count := 0
	start := func() error { count++; return nil }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Start(start))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, count)
	assert.Equal(t, Running, o.State())
	assert.True(t, o.IsRunning())
}

func TestOnceStartError(t *testing.T) {
	o := NewOnce()
	wantErr := errors.New("bind failed")
	require.Equal(t, wantErr, o.Start(func() error { return wantErr }))
	assert.Equal(t, Errored, o.State())

	// Subsequent starts surface the original error without rerunning.
	require.Equal(t, wantErr, o.Start(func() error { return nil }))
}

func TestOnceStopBeforeStart(t *testing.T) {
	o := NewOnce()
	ran := false
	require.NoError(t, o.Stop(func() error { ran = true; return nil }))
	assert.False(t, ran, "stop function must not run for an idle object")
	assert.Equal(t, Stopped, o.State())
}

func TestOnceStartStop(t *testing.T) {
	o := NewOnce()
	require.NoError(t, o.Start(nil))

	select {
	case <-o.Stopping():
		t.Fatal("stopping channel closed while running")
	default:
	}

	stops := 0
	require.NoError(t, o.Stop(func() error { stops++; return nil }))
	require.NoError(t, o.Stop(func() error { stops++; return nil }))
	assert.Equal(t, 1, stops)
	assert.Equal(t, Stopped, o.State())

	select {
	case <-o.Stopping():
	default:
		t.Fatal("stopping channel must be closed after stop")
	}
}

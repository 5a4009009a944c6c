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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/brewpipe/cafed/internal/clock"
	"github.com/brewpipe/cafed/order"
	"github.com/brewpipe/cafed/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startServer(t *testing.T, clk clock.Clock) *Server {
	srv := New(Config{
		ListenAddr: "127.0.0.1:0",
		Clock:      clk,
	})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { require.NoError(t, srv.Stop()) })
	return srv
}

// cafeClient drives one customer connection against a live server.
type cafeClient struct {
	t    *testing.T
	conn net.Conn
	enc  *wire.Encoder
	dec  *wire.Decoder
}

func dialCafe(t *testing.T, srv *Server, cust wire.CustomerPayload) *cafeClient {
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &cafeClient{
		t:    t,
		conn: conn,
		enc:  wire.NewEncoder(conn),
		dec:  wire.NewDecoder(conn),
	}
	require.NoError(t, c.enc.WriteCustomer(cust))
	c.expect(wire.ReplyConnected)
	return c
}

func (c *cafeClient) send(token string) {
	require.NoError(c.t, c.enc.WriteText(token))
}

func (c *cafeClient) read() string {
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	frame, err := c.dec.Read()
	require.NoError(c.t, err)
	require.Equal(c.t, wire.KindText, frame.Kind)
	return frame.Text
}

func (c *cafeClient) expect(want string) {
	assert.Equal(c.t, want, c.read())
}

func (c *cafeClient) terminate() {
	c.send(wire.RequestTerminate)
	c.expect(wire.ReplyTerminateConfirmed)
}

func teaPayload(qty int) wire.ItemPayload {
	return wire.ItemPayload{Quantity: qty, Category: "tea"}
}

// waitForSleepers blocks until n goroutines are parked on the fake clock.
func waitForSleepers(t *testing.T, clk *clock.FakeClock, n int) {
	require.Eventually(t, func() bool { return clk.Waiters() >= n },
		5*time.Second, time.Millisecond)
}

// advanceUntil keeps moving the fake clock forward, releasing whatever is
// parked on it (brews and scheduler backoffs alike), until cond holds.
func advanceUntil(t *testing.T, clk *clock.FakeClock, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached while advancing the clock")
		}
		if clk.Waiters() > 0 {
			clk.Advance(30 * time.Second)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSingleTeaLifecycle(t *testing.T) {
	clk := clock.NewFake()
	srv := startServer(t, clk)

	c := dialCafe(t, srv, wire.CustomerPayload{
		Name:  "Ada",
		ID:    1,
		Items: []wire.ItemPayload{teaPayload(1)},
	})

	// The worker picks the tea up and sleeps out the brew.
	waitForSleepers(t, clk, 1)
	clk.Advance(30 * time.Second)

	assert.Equal(t, "SERVER: Your 1 tea is ready for pickup!", c.read())

	c.send(wire.RequestCollectOrder)
	c.expect(wire.ReplyCollectReady)

	c.send(wire.RequestCollectOrder)
	c.expect(wire.ReplyNoOrderFound)

	c.terminate()
	require.Eventually(t, func() bool { return srv.customers.Connected() == 0 },
		5*time.Second, time.Millisecond)
}

func TestCategoryCapacityAcrossClients(t *testing.T) {
	clk := clock.NewFake()
	srv := startServer(t, clk)

	clients := make([]*cafeClient, 3)
	for i := range clients {
		clients[i] = dialCafe(t, srv, wire.CustomerPayload{
			Name:  "client",
			ID:    int64(i + 1),
			Items: []wire.ItemPayload{teaPayload(1)},
		})
	}

	// Only two teas brew; the third waits for a free slot.
	waitForSleepers(t, clk, 2)
	require.Eventually(t, func() bool { return srv.brewing.Len() == 2 },
		5*time.Second, time.Millisecond)
	assert.Equal(t, 2, srv.capacity.InUse(order.Tea))
	assert.Equal(t, 2, srv.brewing.CountCategory(order.Tea))

	// Finishing brews frees slots; the ceiling holds throughout.
	advanceUntil(t, clk, func() bool {
		assert.True(t, srv.brewing.CountCategory(order.Tea) <= 2)
		return srv.tray.Len() == 3
	})

	for _, c := range clients {
		assert.True(t, wire.IsNotification(c.read()))
		c.terminate()
	}
}

func TestMixedWorkloadBrewsInParallel(t *testing.T) {
	clk := clock.NewFake()
	srv := startServer(t, clk)

	c := dialCafe(t, srv, wire.CustomerPayload{
		Name: "Ada",
		ID:   1,
		Items: []wire.ItemPayload{
			teaPayload(1), teaPayload(1),
			{Quantity: 1, Category: "coffee"}, {Quantity: 1, Category: "coffee"},
		},
	})

	// Two teas and two coffees all brew at once.
	waitForSleepers(t, clk, 4)
	assert.Equal(t, 2, srv.capacity.InUse(order.Tea))
	assert.Equal(t, 2, srv.capacity.InUse(order.Coffee))

	// 30s lands the teas; 15 more lands the coffees.
	clk.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return srv.tray.Len() == 2 },
		5*time.Second, time.Millisecond)
	c.send(wire.RequestCollectOrder)

	// Collection is all-or-nothing while the coffees still brew; the
	// two notifications may arrive around the response in any order.
	var sawNotReady bool
	for i := 0; i < 3; i++ {
		msg := c.read()
		if !wire.IsNotification(msg) {
			assert.Equal(t, wire.ReplyCollectNotReady, msg)
			sawNotReady = true
		}
	}
	require.True(t, sawNotReady)
	assert.Equal(t, 2, srv.tray.Len(), "failed collection must not drain the tray")

	clk.Advance(15 * time.Second)
	require.Eventually(t, func() bool { return srv.tray.Len() == 4 },
		5*time.Second, time.Millisecond)
	for i := 0; i < 2; i++ {
		assert.True(t, wire.IsNotification(c.read()))
	}

	c.send(wire.RequestCollectOrder)
	c.expect(wire.ReplyCollectReady)
	assert.Equal(t, 0, srv.tray.Len())

	c.terminate()
}

func TestReclamationAcrossSessions(t *testing.T) {
	clk := clock.NewFake()
	srv := startServer(t, clk)

	a := dialCafe(t, srv, wire.CustomerPayload{
		Name:  "A",
		ID:    1,
		Items: []wire.ItemPayload{{Quantity: 1, Category: "coffee"}},
	})

	waitForSleepers(t, clk, 1)
	clk.Advance(45 * time.Second)
	assert.True(t, wire.IsNotification(a.read()))

	// A walks out without collecting; the coffee is orphaned on the tray.
	require.NoError(t, a.conn.Close())
	require.Eventually(t, func() bool { return srv.customers.Connected() == 0 },
		5*time.Second, time.Millisecond)
	require.Equal(t, 1, srv.tray.Len())

	b := dialCafe(t, srv, wire.CustomerPayload{
		Name:  "B",
		ID:    2,
		Items: []wire.ItemPayload{{Quantity: 1, Category: "coffee"}},
	})
	assert.Equal(t, wire.NotifyReclaimed, b.read())
	assert.Equal(t, 0, srv.waiting.Len(), "no new brew starts for a reclaimed order")

	b.send(wire.RequestCollectOrder)
	b.expect(wire.ReplyCollectReady)
	assert.Equal(t, 0, srv.tray.Len())

	b.terminate()
}

func TestServerStartStop(t *testing.T) {
	srv := New(Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, srv.Start())
	require.NoError(t, srv.Stop())
	// Stop is idempotent.
	require.NoError(t, srv.Stop())
}

func TestServerStopsWithBusySessions(t *testing.T) {
	clk := clock.NewFake()
	srv := New(Config{ListenAddr: "127.0.0.1:0", Clock: clk})
	require.NoError(t, srv.Start())

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	enc := wire.NewEncoder(conn)
	require.NoError(t, enc.WriteCustomer(wire.CustomerPayload{
		Name:  "Ada",
		ID:    1,
		Items: []wire.ItemPayload{teaPayload(1)},
	}))

	// Wait for the brew to be in flight, then shut down mid-brew.
	waitForSleepers(t, clk, 1)

	done := make(chan error, 1)
	go func() { done <- srv.Stop() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop with a session connected and a brew in flight")
	}
	assert.Equal(t, 0, srv.capacity.InUse(order.Tea))
}

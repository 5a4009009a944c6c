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

// Package session implements the per-connection protocol handler and the
// registry that fans asynchronous notifications out to live sessions.
package session

import (
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/brewpipe/cafed/order"
	"github.com/brewpipe/cafed/pipeline"
	"github.com/brewpipe/cafed/wire"
)

// Stage names surfaced in the ORDER_STATUS blob.
const (
	_stageWaiting = "WAITING"
	_stageBrewing = "BREWING"
	_stageReady   = "READY"
)

// Config collects everything a session handler needs to serve one
// connection.
type Config struct {
	Conn      net.Conn
	Logger    *zap.Logger
	Waiting   *pipeline.Waiting
	Brewing   *pipeline.Brewing
	Tray      *pipeline.Tray
	Customers *pipeline.Registry
	Sessions  *Registry
}

// Handler owns one customer connection. It drives the request/response
// state machine and is the single writer for the connection's outbound
// side; brew workers reach the same encoder through Notify.
type Handler struct {
	conn      net.Conn
	enc       *wire.Encoder
	dec       *wire.Decoder
	logger    *zap.Logger
	waiting   *pipeline.Waiting
	brewing   *pipeline.Brewing
	tray      *pipeline.Tray
	customers *pipeline.Registry
	sessions  *Registry

	customer    order.Customer
	registered  bool
	outstanding []*order.Ticket
	idle        bool

	closeOnce sync.Once
}

// NewHandler constructs a handler for one accepted connection. The protocol
// handshake happens inside Run.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		conn:      cfg.Conn,
		enc:       wire.NewEncoder(cfg.Conn),
		dec:       wire.NewDecoder(cfg.Conn),
		logger:    logger,
		waiting:   cfg.Waiting,
		brewing:   cfg.Brewing,
		tray:      cfg.Tray,
		customers: cfg.Customers,
		sessions:  cfg.Sessions,
	}
}

// Run performs the handshake and serves requests until the customer
// terminates or the transport fails. Outstanding items stay in the pipeline
// when the session ends; their tickets become candidates for reclamation.
func (h *Handler) Run() error {
	defer h.close()
	defer h.teardown()

	if err := h.handshake(); err != nil {
		h.logger.Warn("session handshake failed", zap.Error(err))
		return err
	}

	err := h.serve()
	if err != nil && err != io.EOF {
		h.logger.Info("session failed", zap.Int64("customerID", h.customer.ID), zap.Error(err))
		return err
	}
	return nil
}

func (h *Handler) handshake() error {
	frame, err := h.dec.Read()
	if err != nil {
		return fmt.Errorf("read customer descriptor: %w", err)
	}
	if frame.Kind != wire.KindCustomer {
		return fmt.Errorf("expected customer descriptor, got %q frame", frame.Kind)
	}

	items, err := wire.ItemsFromPayloads(frame.Customer.Items)
	if err != nil {
		return fmt.Errorf("invalid initial order: %w", err)
	}

	h.customer = order.Customer{ID: frame.Customer.ID, Name: frame.Customer.Name}
	if err := h.customers.Register(h.customer.ID); err != nil {
		return err
	}
	h.sessions.add(h)
	// From here on teardown must release the registration, even if the
	// CONNECTED write below fails.
	h.registered = true

	if err := h.enc.WriteText(wire.ReplyConnected); err != nil {
		return err
	}
	h.admit(items)

	h.logger.Info("customer connected",
		zap.Int64("customerID", h.customer.ID),
		zap.String("name", h.customer.Name),
		zap.Int("items", len(items)),
	)
	return nil
}

func (h *Handler) serve() error {
	for {
		frame, err := h.dec.Read()
		if err != nil {
			return err
		}
		if frame.Kind != wire.KindText {
			return fmt.Errorf("expected request token, got %q frame", frame.Kind)
		}

		switch frame.Text {
		case wire.RequestOrderStatus:
			err = h.orderStatus()
		case wire.RequestCollectOrder:
			err = h.collect()
		case wire.RequestNewOrder:
			err = h.newOrder()
		case wire.RequestTerminate:
			h.logger.Debug("customer terminated", zap.Int64("customerID", h.customer.ID))
			return h.enc.WriteText(wire.ReplyTerminateConfirmed)
		default:
			h.logger.Warn("ignoring unknown request",
				zap.Int64("customerID", h.customer.ID),
				zap.String("request", frame.Text),
			)
		}
		if err != nil {
			return err
		}
	}
}

func (h *Handler) orderStatus() error {
	if err := h.enc.WriteText(wire.ReplyOrderStatus); err != nil {
		return err
	}
	return h.enc.WriteText(h.statusBlob())
}

func (h *Handler) statusBlob() string {
	if h.idle {
		return "You have no outstanding order."
	}
	lines := make([]string, 0, len(h.outstanding))
	for _, t := range h.outstanding {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Item(), h.stageOf(t.Key())))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) stageOf(key string) string {
	switch {
	case h.waiting.Contains(key):
		return _stageWaiting
	case h.brewing.Contains(key):
		return _stageBrewing
	case h.tray.Contains(key):
		return _stageReady
	default:
		return "could not be tracked"
	}
}

func (h *Handler) collect() error {
	if h.idle {
		return h.enc.WriteText(wire.ReplyNoOrderFound)
	}

	keys := make([]string, len(h.outstanding))
	for i, t := range h.outstanding {
		keys[i] = t.Key()
	}
	if !h.tray.TakeAll(keys) {
		return h.enc.WriteText(wire.ReplyCollectNotReady)
	}

	h.outstanding = nil
	h.setIdle(true)
	h.logger.Info("order collected", zap.Int64("customerID", h.customer.ID), zap.Int("items", len(keys)))
	return h.enc.WriteText(wire.ReplyCollectReady)
}

func (h *Handler) newOrder() error {
	if err := h.enc.WriteText(wire.ReplyNewOrderReady); err != nil {
		return err
	}

	frame, err := h.dec.Read()
	if err != nil {
		return err
	}
	if frame.Kind != wire.KindItems {
		return fmt.Errorf("expected item list, got %q frame", frame.Kind)
	}
	items, err := wire.ItemsFromPayloads(frame.Items)
	if err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}

	h.admit(items)
	return h.enc.WriteText(wire.ReplyNewOrderConfirmed)
}

// admit feeds incoming items into the pipeline. Each item is first matched
// against orphaned tray tickets; unmatched items are enqueued for brewing.
func (h *Handler) admit(items []order.Item) {
	active := h.customers.ActiveSnapshot()
	reclaimed := 0
	for _, item := range items {
		if t, ok := h.tray.Reclaim(item.Category, active, h.customer.ID); ok {
			h.outstanding = append(h.outstanding, t)
			reclaimed++
			continue
		}
		t := order.NewTicket(h.customer.ID, item)
		h.outstanding = append(h.outstanding, t)
		h.waiting.Enqueue(t)
	}

	if reclaimed > 0 {
		h.logger.Info("reclaimed orphaned items",
			zap.Int64("customerID", h.customer.ID),
			zap.Int("reclaimed", reclaimed),
		)
		h.Notify(wire.NotifyReclaimed)
	}
	h.setIdle(len(h.outstanding) == 0)
}

func (h *Handler) setIdle(idle bool) {
	h.idle = idle
	if idle {
		h.customers.SetIdle(h.customer.ID, h.customer.Name)
	} else {
		h.customers.ClearIdle(h.customer.ID)
	}
}

// Notify delivers an asynchronous server push on the session's outbound
// side. Delivery failures are logged and dropped; the session's read loop
// will observe the transport fault on its own.
func (h *Handler) Notify(message string) bool {
	if err := h.enc.WriteText(message); err != nil {
		h.logger.Debug("dropping notification",
			zap.Int64("customerID", h.customer.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// teardown releases the session's registrations once it has claimed a
// customer id, whether or not the handshake finished.
func (h *Handler) teardown() {
	if !h.registered {
		return
	}
	h.sessions.remove(h.customer.ID)
	h.customers.Deregister(h.customer.ID)
	h.logger.Info("session ended",
		zap.Int64("customerID", h.customer.ID),
		zap.Int("outstanding", len(h.outstanding)),
	)
}

func (h *Handler) close() {
	h.closeOnce.Do(func() {
		_ = h.conn.Close()
	})
}

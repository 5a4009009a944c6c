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

// Package wire implements the cafe's framed object protocol: a bidirectional
// byte stream of length-prefixed, self-describing JSON envelopes.
package wire

import "strings"

// Request tokens sent by clients.
const (
	RequestOrderStatus  = "ORDER_STATUS"
	RequestCollectOrder = "COLLECT_ORDER"
	RequestNewOrder     = "NEW_ORDER"
	RequestTerminate    = "TERMINATE"
)

// Response tokens sent by the server.
const (
	ReplyConnected          = "CONNECTED"
	ReplyOrderStatus        = "ORDER_STATUS_CONFIRMED"
	ReplyCollectReady       = "COLLECT_ORDER_READY"
	ReplyCollectNotReady    = "COLLECT_ORDER_NOT_READY"
	ReplyNoOrderFound       = "NO_ORDER_FOUND"
	ReplyNewOrderReady      = "NEW_ORDER_READY"
	ReplyNewOrderConfirmed  = "NEW_ORDER_CONFIRMED"
	ReplyTerminateConfirmed = "TERMINATE_CONFIRMED"
)

// NotifyPrefix marks asynchronous server-push messages. Clients display
// them without consuming a pending response slot.
const NotifyPrefix = "SERVER: "

// NotifyReclaimed is pushed when an incoming order was fulfilled from
// orphaned tray items instead of being brewed.
const NotifyReclaimed = NotifyPrefix + "That was fast! We have your order complete :)"

// NotifyReady renders the server push announcing a completed brew.
func NotifyReady(description string) string {
	return NotifyPrefix + "Your " + description + " is ready for pickup!"
}

// IsNotification reports whether a text frame is an asynchronous server
// push rather than a response.
func IsNotification(text string) bool {
	return strings.HasPrefix(text, NotifyPrefix)
}

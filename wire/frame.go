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

package wire

import (
	"fmt"
	"strings"

	"github.com/brewpipe/cafed/order"
)

// Kind discriminates the payload carried by a frame.
type Kind string

// The frame kinds both ends of the protocol understand.
const (
	KindText     Kind = "text"
	KindCustomer Kind = "customer"
	KindItems    Kind = "items"
)

// Frame is one decoded protocol message.
type Frame struct {
	Kind     Kind
	Text     string
	Customer *CustomerPayload
	Items    []ItemPayload
}

// CustomerPayload is the descriptor a client sends as its first message.
type CustomerPayload struct {
	Name  string        `json:"name"`
	ID    int64         `json:"id"`
	Items []ItemPayload `json:"items"`
}

// ItemPayload is the wire form of one order line.
type ItemPayload struct {
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
}

// Item converts the payload into a validated domain item. The category is
// normalized to lowercase.
func (p ItemPayload) Item() (order.Item, error) {
	if p.Quantity <= 0 {
		return order.Item{}, fmt.Errorf("item quantity %d must be positive", p.Quantity)
	}
	cat := order.Category(strings.ToLower(p.Category))
	if !cat.Valid() {
		return order.Item{}, fmt.Errorf("unknown category %q", p.Category)
	}
	return order.Item{Quantity: p.Quantity, Category: cat}, nil
}

// PayloadFromItem converts a domain item into its wire form.
func PayloadFromItem(i order.Item) ItemPayload {
	return ItemPayload{Quantity: i.Quantity, Category: string(i.Category)}
}

// PayloadsFromItems converts a slice of domain items into wire form.
func PayloadsFromItems(items []order.Item) []ItemPayload {
	out := make([]ItemPayload, len(items))
	for i, item := range items {
		out[i] = PayloadFromItem(item)
	}
	return out
}

// ItemsFromPayloads converts and validates a slice of wire items.
func ItemsFromPayloads(payloads []ItemPayload) ([]order.Item, error) {
	items := make([]order.Item, 0, len(payloads))
	for _, p := range payloads {
		item, err := p.Item()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

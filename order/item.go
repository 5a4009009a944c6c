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

// Package order defines the value objects that move through the cafe
// pipeline: items, customer identities, and tickets.
package order

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is a kind of beverage the cafe can brew.
type Category string

// The closed set of categories the cafe serves.
const (
	Tea    Category = "tea"
	Coffee Category = "coffee"
)

// Categories returns every category the cafe serves, in a stable order.
func Categories() []Category {
	return []Category{Tea, Coffee}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == Tea || c == Coffee
}

// Item is one line of a customer's order: a quantity of a single category.
type Item struct {
	Quantity int
	Category Category
}

// String renders the item in its wire text form, "<quantity> <category>".
func (i Item) String() string {
	return fmt.Sprintf("%d %s", i.Quantity, i.Category)
}

// ParseItem parses the "<quantity> <category>" text form. Category matching
// is case-insensitive; the parsed item carries the lowercase form.
func ParseItem(s string) (Item, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return Item{}, fmt.Errorf("malformed item %q: want \"<quantity> <category>\"", s)
	}
	qty, err := strconv.Atoi(fields[0])
	if err != nil {
		return Item{}, fmt.Errorf("malformed item %q: %v", s, err)
	}
	if qty <= 0 {
		return Item{}, fmt.Errorf("malformed item %q: quantity must be positive", s)
	}
	cat := Category(strings.ToLower(fields[1]))
	if !cat.Valid() {
		return Item{}, fmt.Errorf("unknown category %q", fields[1])
	}
	return Item{Quantity: qty, Category: cat}, nil
}

// ParseItems parses a comma-separated list of item text forms, for example
// "2 tea, 1 coffee". An empty string yields an empty order.
func ParseItems(s string) ([]Item, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	items := make([]Item, 0, len(parts))
	for _, p := range parts {
		item, err := ParseItem(p)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Customer identifies one cafe patron. The id is chosen by the client and
// must be unique among currently connected sessions.
type Customer struct {
	ID   int64
	Name string
}

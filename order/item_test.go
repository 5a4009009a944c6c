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

package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		give    string
		want    Item
		wantErr string
	}{
		{give: "1 tea", want: Item{Quantity: 1, Category: Tea}},
		{give: "2 coffee", want: Item{Quantity: 2, Category: Coffee}},
		{give: "3 TEA", want: Item{Quantity: 3, Category: Tea}},
		{give: "  4   coffee  ", want: Item{Quantity: 4, Category: Coffee}},
		{give: "tea", wantErr: "malformed item"},
		{give: "one tea", wantErr: "malformed item"},
		{give: "0 tea", wantErr: "quantity must be positive"},
		{give: "-1 coffee", wantErr: "quantity must be positive"},
		{give: "2 cocoa", wantErr: `unknown category "cocoa"`},
		{give: "1 tea extra", wantErr: "malformed item"},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			item, err := ParseItem(tt.give)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, item)
		})
	}
}

func TestParseItems(t *testing.T) {
	items, err := ParseItems("2 tea, 1 coffee")
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{Quantity: 2, Category: Tea},
		{Quantity: 1, Category: Coffee},
	}, items)

	items, err = ParseItems("")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = ParseItems("1 tea, nope")
	require.Error(t, err)
}

func TestItemString(t *testing.T) {
	assert.Equal(t, "2 tea", Item{Quantity: 2, Category: Tea}.String())
	assert.Equal(t, "1 coffee", Item{Quantity: 1, Category: Coffee}.String())
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, Tea.Valid())
	assert.True(t, Coffee.Valid())
	assert.False(t, Category("cocoa").Valid())
}

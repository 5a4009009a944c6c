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
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Frames larger than this are rejected on read. The protocol's biggest
// legitimate payload is a customer descriptor with a modest item list.
const _maxFrameSize = 1 << 20

// ErrFrameTooLarge is returned when a peer announces a frame beyond the
// size limit.
var ErrFrameTooLarge = errors.New("frame exceeds size limit")

type envelope struct {
	Type     Kind             `json:"type"`
	Text     string           `json:"text,omitempty"`
	Customer *CustomerPayload `json:"customer,omitempty"`
	Items    []ItemPayload    `json:"items,omitempty"`
}

// Encoder writes frames to a stream. All writes are serialized through an
// internal mutex, so a session handler and brew workers may share one
// Encoder and each frame reaches the wire intact.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteText writes a text token frame.
func (e *Encoder) WriteText(text string) error {
	return e.write(envelope{Type: KindText, Text: text})
}

// WriteCustomer writes a customer descriptor frame.
func (e *Encoder) WriteCustomer(c CustomerPayload) error {
	return e.write(envelope{Type: KindCustomer, Customer: &c})
}

// WriteItems writes an item list frame. An empty list is a valid frame.
func (e *Encoder) WriteItems(items []ItemPayload) error {
	if items == nil {
		items = []ItemPayload{}
	}
	return e.write(envelope{Type: KindItems, Items: items})
}

func (e *Encoder) write(env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode frame: %v", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := e.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = e.w.Write(body)
	return err
}

// Decoder reads frames from a stream. It is not safe for concurrent use;
// each session owns exactly one reader.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Read decodes the next frame. It returns io.EOF when the peer closes the
// stream cleanly between frames.
func (d *Decoder) Read() (Frame, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > _maxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return Frame{}, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %v", err)
	}

	switch env.Type {
	case KindText:
		return Frame{Kind: KindText, Text: env.Text}, nil
	case KindCustomer:
		if env.Customer == nil {
			return Frame{}, errors.New("customer frame missing descriptor")
		}
		return Frame{Kind: KindCustomer, Customer: env.Customer}, nil
	case KindItems:
		items := env.Items
		if items == nil {
			items = []ItemPayload{}
		}
		return Frame{Kind: KindItems, Items: items}, nil
	default:
		return Frame{}, fmt.Errorf("unknown frame type %q", env.Type)
	}
}

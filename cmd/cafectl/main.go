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

// cafectl is an interactive customer client for the cafe server.
//
// Usage:
//
//	cafectl -addr localhost:8888 -id 7 -name Ada -order "2 tea, 1 coffee"
//
// Commands at the prompt: status, collect, order <items>, quit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/brewpipe/cafed/order"
	"github.com/brewpipe/cafed/wire"
)

func main() {
	var (
		addr      = flag.String("addr", "localhost:8888", "cafe server address")
		id        = flag.Int64("id", 0, "customer id (unique among connected customers)")
		name      = flag.String("name", "", "customer display name")
		orderText = flag.String("order", "", "initial order, e.g. \"2 tea, 1 coffee\"")
	)
	flag.Parse()
	if *id == 0 || *name == "" {
		log.Fatal("both -id and -name are required")
	}

	items, err := order.ParseItems(*orderText)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	c := &client{
		enc:     wire.NewEncoder(conn),
		dec:     wire.NewDecoder(conn),
		pending: make(chan []wire.ItemPayload, 1),
		done:    make(chan struct{}),
	}
	if err := c.enc.WriteCustomer(wire.CustomerPayload{
		Name:  *name,
		ID:    *id,
		Items: wire.PayloadsFromItems(items),
	}); err != nil {
		log.Fatal(err)
	}

	var g errgroup.Group
	g.Go(c.receive)
	g.Go(c.prompt)
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

type client struct {
	enc *wire.Encoder
	dec *wire.Decoder

	// pending holds the item list for an in-flight NEW_ORDER exchange; the
	// receive loop sends it once the server confirms it is ready.
	pending chan []wire.ItemPayload
	done    chan struct{}
}

// receive prints every inbound frame and completes NEW_ORDER handshakes.
func (c *client) receive() error {
	for {
		frame, err := c.dec.Read()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
				return err
			}
		}
		if frame.Kind != wire.KindText {
			return fmt.Errorf("unexpected %q frame from server", frame.Kind)
		}

		fmt.Println(frame.Text)

		switch frame.Text {
		case wire.ReplyNewOrderReady:
			if err := c.enc.WriteItems(<-c.pending); err != nil {
				return err
			}
		case wire.ReplyTerminateConfirmed:
			close(c.done)
			return nil
		}
	}
}

// prompt reads commands from stdin and writes request tokens.
func (c *client) prompt() error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return c.enc.WriteText(wire.RequestTerminate)
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "status":
			if err := c.enc.WriteText(wire.RequestOrderStatus); err != nil {
				return err
			}
		case line == "collect":
			if err := c.enc.WriteText(wire.RequestCollectOrder); err != nil {
				return err
			}
		case strings.HasPrefix(line, "order"):
			items, err := order.ParseItems(strings.TrimPrefix(line, "order"))
			if err != nil {
				fmt.Println(err)
				continue
			}
			c.pending <- wire.PayloadsFromItems(items)
			if err := c.enc.WriteText(wire.RequestNewOrder); err != nil {
				return err
			}
		case line == "quit" || line == "exit":
			if err := c.enc.WriteText(wire.RequestTerminate); err != nil {
				return err
			}
			<-c.done
			return nil
		case line == "":
		default:
			fmt.Println("commands: status, collect, order <items>, quit")
		}
	}
}

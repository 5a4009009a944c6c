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
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/brewpipe/cafed/brew"
	"github.com/brewpipe/cafed/internal/lifecycle"
	"github.com/brewpipe/cafed/pipeline"
	"github.com/brewpipe/cafed/sched"
	"github.com/brewpipe/cafed/session"
	"github.com/brewpipe/cafed/stats"
)

// Server is the assembled cafe: acceptor, session handlers, pipeline
// stages, scheduler, brewery, and the optional stats reporter.
type Server struct {
	cfg    Config
	logger *zap.Logger

	waiting   *pipeline.Waiting
	brewing   *pipeline.Brewing
	tray      *pipeline.Tray
	capacity  *pipeline.Capacity
	customers *pipeline.Registry
	sessions  *session.Registry

	scheduler *sched.Scheduler
	brewery   *brew.Brewery
	reporter  *stats.Reporter

	listener net.Listener
	slots    chan struct{}
	wg       sync.WaitGroup
	once     *lifecycle.Once

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// New builds a Server from cfg. Nothing runs until Start.
func New(cfg Config) *Server {
	cfg = cfg.withDefaults()
	logger := cfg.Logger

	waiting := pipeline.NewWaiting()
	brewing := pipeline.NewBrewing()
	tray := pipeline.NewTray()
	capacity := pipeline.NewCapacity(cfg.CategoryCapacity)
	customers := pipeline.NewRegistry()
	sessions := session.NewRegistry()

	brewery := brew.New(brew.Config{
		Workers:   cfg.BrewWorkers,
		BrewTimes: cfg.BrewTimes,
		Brewing:   brewing,
		Tray:      tray,
		Capacity:  capacity,
		Sessions:  sessions,
		Clock:     cfg.Clock,
		Logger:    logger.Named("brew"),
	})
	scheduler := sched.New(sched.Config{
		Waiting:    waiting,
		Capacity:   capacity,
		Dispatcher: brewery,
		Backoff:    cfg.RequeueBackoff,
		Clock:      cfg.Clock,
		Logger:     logger.Named("sched"),
	})

	var reporter *stats.Reporter
	if cfg.StatsInterval > 0 {
		reporter = stats.New(stats.Config{
			Scope:     cfg.Scope,
			Interval:  cfg.StatsInterval,
			Waiting:   waiting,
			Brewing:   brewing,
			Tray:      tray,
			Capacity:  capacity,
			Customers: customers,
			Clock:     cfg.Clock,
			Logger:    logger.Named("stats"),
		})
	}

	return &Server{
		cfg:       cfg,
		logger:    logger,
		waiting:   waiting,
		brewing:   brewing,
		tray:      tray,
		capacity:  capacity,
		customers: customers,
		sessions:  sessions,
		scheduler: scheduler,
		brewery:   brewery,
		reporter:  reporter,
		slots:     make(chan struct{}, cfg.SessionLimit),
		once:      lifecycle.NewOnce(),
		conns:     make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and launches the brewery, scheduler, acceptor,
// and stats reporter.
func (s *Server) Start() error {
	return s.once.Start(func() error {
		ln, err := net.Listen("tcp", s.cfg.ListenAddr)
		if err != nil {
			return err
		}
		s.listener = ln

		if err := s.brewery.Start(); err != nil {
			_ = ln.Close()
			return err
		}
		if err := s.scheduler.Start(); err != nil {
			_ = ln.Close()
			return multierr.Append(err, s.brewery.Stop())
		}
		if s.reporter != nil {
			if err := s.reporter.Start(); err != nil {
				_ = ln.Close()
				return multierr.Combine(err, s.scheduler.Stop(), s.brewery.Stop())
			}
		}

		s.wg.Add(1)
		go s.acceptLoop()

		s.logger.Info("cafe open", zap.String("addr", ln.Addr().String()))
		return nil
	})
}

// Stop closes the listener, tears down live sessions, and drains the
// scheduler and brewery. In-flight brews are abandoned.
func (s *Server) Stop() error {
	return s.once.Stop(func() error {
		err := s.listener.Close()
		s.closeConns()

		err = multierr.Append(err, s.scheduler.Stop())
		err = multierr.Append(err, s.brewery.Stop())
		if s.reporter != nil {
			err = multierr.Append(err, s.reporter.Stop())
		}

		s.wg.Wait()
		s.logger.Info("cafe closed")
		return err
	})
}

// Addr returns the bound listener address, for callers that configured
// port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.once.Stopping():
				return
			default:
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		select {
		case s.slots <- struct{}{}:
		case <-s.once.Stopping():
			_ = conn.Close()
			return
		}

		h := session.NewHandler(session.Config{
			Conn:      conn,
			Logger:    s.logger.Named("session"),
			Waiting:   s.waiting,
			Brewing:   s.brewing,
			Tray:      s.tray,
			Customers: s.customers,
			Sessions:  s.sessions,
		})
		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			defer func() { <-s.slots }()
			_ = h.Run()
		}()
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

// closeConns tears down every live connection so blocked session reads
// observe a transport fault and exit.
func (s *Server) closeConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

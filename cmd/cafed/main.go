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

// cafed runs the cafe server.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/brewpipe/cafed"
	"github.com/brewpipe/cafed/cafedconfig"
	"github.com/brewpipe/cafed/stats"
)

func main() {
	var (
		listenAddr = flag.String("listen", "", "listen address (overrides config file)")
		configPath = flag.String("config", "", "path to a YAML config file")
	)
	flag.Parse()

	fileCfg := cafedconfig.Default()
	if *configPath != "" {
		var err error
		fileCfg, err = cafedconfig.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *listenAddr != "" {
		fileCfg.ListenAddr = *listenAddr
	}

	app := fx.New(
		fx.Provide(
			newLogger,
			func() cafedconfig.Config { return fileCfg },
			newServer,
		),
		fx.Invoke(run),
	)
	app.Run()
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

func newServer(fc cafedconfig.Config, logger *zap.Logger) (*cafed.Server, func() error) {
	cfg := cafed.ConfigFrom(fc)
	cfg.Logger = logger

	closeScope := func() error { return nil }
	if fc.StatsInterval > 0 {
		scope, closer := tally.NewRootScope(tally.ScopeOptions{
			Prefix:   "cafed",
			Reporter: stats.NewZapReporter(logger.Named("dashboard")),
		}, fc.StatsInterval)
		cfg.Scope = scope
		closeScope = closer.Close
	}

	return cafed.New(cfg), closeScope
}

func run(lc fx.Lifecycle, srv *cafed.Server, closeScope func() error, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return srv.Start()
		},
		OnStop: func(context.Context) error {
			defer logger.Sync()
			if err := srv.Stop(); err != nil {
				return err
			}
			return closeScope()
		},
	})
}

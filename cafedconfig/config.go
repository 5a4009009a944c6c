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

// Package cafedconfig loads cafed configuration from YAML.
package cafedconfig

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/uber-go/mapdecode"
	"gopkg.in/yaml.v2"
)

const _tagName = "config"

// Config carries every tunable the server exposes. Load and Parse replace
// zero values with defaults, except StatsInterval, whose zero value disables
// the dashboard.
type Config struct {
	// ListenAddr is the address the acceptor binds.
	ListenAddr string `config:"listenAddr"`

	// SessionLimit bounds how many customer sessions run concurrently.
	SessionLimit int `config:"sessionLimit"`

	// BrewWorkers sizes the brew worker pool.
	BrewWorkers int `config:"brewWorkers"`

	// CategoryCapacity is the per-category concurrent brew ceiling.
	CategoryCapacity int `config:"categoryCapacity"`

	// RequeueBackoff is the scheduler's sleep when a category is saturated.
	RequeueBackoff time.Duration `config:"requeueBackoff"`

	// TeaBrewTime and CoffeeBrewTime override the brew durations.
	TeaBrewTime    time.Duration `config:"teaBrewTime"`
	CoffeeBrewTime time.Duration `config:"coffeeBrewTime"`

	// StatsInterval is the dashboard cadence. Zero disables the dashboard.
	StatsInterval time.Duration `config:"statsInterval"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ListenAddr:       ":8888",
		SessionLimit:     10,
		BrewWorkers:      4,
		CategoryCapacity: 2,
		RequeueBackoff:   100 * time.Millisecond,
		TeaBrewTime:      30 * time.Second,
		CoffeeBrewTime:   45 * time.Second,
		StatsInterval:    10 * time.Second,
	}
}

// Load reads a YAML file and fills unset fields with defaults. An unset
// statsInterval stays zero.
func Load(path string) (Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML config bytes and fills unset fields with defaults. An
// unset statsInterval stays zero.
func Parse(raw []byte) (Config, error) {
	var data map[string]interface{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := mapdecode.Decode(&cfg, data, mapdecode.TagName(_tagName), mapdecode.YAML()); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return withDefaults(cfg), nil
}

func withDefaults(cfg Config) Config {
	def := Default()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.SessionLimit <= 0 {
		cfg.SessionLimit = def.SessionLimit
	}
	if cfg.BrewWorkers <= 0 {
		cfg.BrewWorkers = def.BrewWorkers
	}
	if cfg.CategoryCapacity <= 0 {
		cfg.CategoryCapacity = def.CategoryCapacity
	}
	if cfg.RequeueBackoff <= 0 {
		cfg.RequeueBackoff = def.RequeueBackoff
	}
	if cfg.TeaBrewTime <= 0 {
		cfg.TeaBrewTime = def.TeaBrewTime
	}
	if cfg.CoffeeBrewTime <= 0 {
		cfg.CoffeeBrewTime = def.CoffeeBrewTime
	}
	return cfg
}

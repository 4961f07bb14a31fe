// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"io"
	"strings"
	"time"

	statsd "github.com/cactus/go-statsd-client/v5/statsd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	tallystatsd "github.com/uber-go/tally/v4/statsd"
)

// Config will be containing the metrics configuration
type Config struct {
	Statsd *StatsdConfig `yaml:"statsd"`
	// FlushInterval is how often buffered metrics are reported.
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// StatsdConfig configures the statsd reporter.
type StatsdConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

const _defaultFlushInterval = time.Second

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InitMetricScope initializes a root scope and its closer. Without a
// configured backend the noop scope is returned. Closing the closer flushes
// everything reported so far.
func InitMetricScope(cfg *Config, rootMetricScope string) (tally.Scope, io.Closer, error) {
	if cfg == nil || cfg.Statsd == nil || !cfg.Statsd.Enable {
		log.Debug("No metrics backends configured, using the noop scope")
		return tally.NoopScope, nopCloser{}, nil
	}

	log.WithField("endpoint", cfg.Statsd.Endpoint).
		Info("Metrics configured with statsd endpoint")
	client, err := statsd.NewClientWithConfig(&statsd.ClientConfig{
		Address: cfg.Statsd.Endpoint,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to setup statsd client")
	}

	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = _defaultFlushInterval
	}

	// tally panics if scope name contains "-", hence force convert to "_"
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:    strings.Replace(rootMetricScope, "-", "_", -1),
		Tags:      map[string]string{},
		Reporter:  tallystatsd.NewReporter(client, tallystatsd.Options{}),
		Separator: ".",
	}, interval)
	return scope, closer, nil
}

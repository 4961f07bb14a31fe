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

package upload

const (
	_defaultRemoteRoot      = "hoedur-experiments"
	_defaultRemoteConfigDir = "experiment-config/host-run-configs"
	_defaultSSHRate         = 4
	_defaultConcurrency     = 4
)

// Config configures where and how run configs are uploaded.
type Config struct {
	// RemoteRoot is the experiment checkout below the remote home directory.
	RemoteRoot string `yaml:"remote_root"`
	// RemoteConfigDir is the run config directory inside RemoteRoot.
	RemoteConfigDir string `yaml:"remote_config_dir"`
	// SSHRate limits the host checks per second.
	SSHRate float64 `yaml:"ssh_rate" validate:"min=0"`
	// Concurrency is the number of hosts handled in parallel.
	Concurrency int `yaml:"concurrency" validate:"min=0"`
}

func (c Config) withDefaults() Config {
	if c.RemoteRoot == "" {
		c.RemoteRoot = _defaultRemoteRoot
	}
	if c.RemoteConfigDir == "" {
		c.RemoteConfigDir = _defaultRemoteConfigDir
	}
	if c.SSHRate <= 0 {
		c.SSHRate = _defaultSSHRate
	}
	if c.Concurrency <= 0 {
		c.Concurrency = _defaultConcurrency
	}
	return c
}

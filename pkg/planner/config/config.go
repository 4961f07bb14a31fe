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

package config

import (
	"path/filepath"

	"github.com/pkg/errors"

	common_config "github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/config"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/metrics"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/catalogue"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/scheduler"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/upload"
)

// Default locations below the base directory.
const (
	_configDir         = "experiment-config"
	_hostsFile         = "available_hosts.txt"
	_experimentsFile   = "experiments.yml"
	_profilesFile      = "profiles.yml"
	_activeProfileFile = "active_profile.txt"
	_outputDir         = "host-run-configs"
)

// Config holds all configs to run the planner.
type Config struct {
	Metrics    metrics.Config   `yaml:"metrics"`
	Paths      PathsConfig      `yaml:"paths"`
	Scheduling scheduler.Config `yaml:"scheduling"`
	Upload     upload.Config    `yaml:"upload"`
}

// PathsConfig locates the planner inputs and output. Relative paths are
// resolved against BaseDir, empty ones fall back to the default layout of
// the experiment checkout.
type PathsConfig struct {
	// BaseDir is the root of the experiment checkout.
	BaseDir string `yaml:"base_dir"`

	// Hosts is the host inventory, one "<hostname> <cores>" per line.
	Hosts string `yaml:"hosts"`

	// Experiments lists the experiment definitions.
	Experiments string `yaml:"experiments"`

	// Profiles holds the run-time profiles of the experiments.
	Profiles string `yaml:"profiles"`

	// ActiveProfile is the file naming the profile in use.
	ActiveProfile string `yaml:"active_profile"`

	// Profile overrides the content of ActiveProfile.
	Profile string `yaml:"profile"`

	// Output is the directory receiving one run config per host.
	Output string `yaml:"output"`
}

// New returns a config with the default layout below baseDir.
func New(baseDir string) *Config {
	cfg := &Config{Paths: PathsConfig{BaseDir: baseDir}}
	cfg.Paths.resolve()
	return cfg
}

// Load parses the config files, applies the defaults and validates the
// result. Files later in the list override earlier ones, a non-empty
// baseDir overrides paths.base_dir.
func Load(baseDir string, files ...string) (*Config, error) {
	cfg := &Config{}
	if len(files) > 0 {
		if err := common_config.Parse(cfg, files...); err != nil {
			return nil, err
		}
	}
	if baseDir != "" {
		cfg.Paths.BaseDir = baseDir
	}
	cfg.Paths.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and the scheduling settings.
func (c *Config) Validate() error {
	if err := common_config.Validate(c); err != nil {
		return err
	}
	return errors.Wrap(c.Scheduling.Validate(), "invalid scheduling config")
}

// Resolve applies the defaults to paths left empty and resolves relative
// paths against the base directory.
func (c *Config) Resolve() {
	c.Paths.resolve()
}

// CatalogueOptions returns the options to load the experiment catalogue.
func (c *Config) CatalogueOptions() catalogue.LoadOptions {
	return catalogue.LoadOptions{
		ExperimentsFile:   c.Paths.Experiments,
		ProfilesFile:      c.Paths.Profiles,
		ActiveProfileFile: c.Paths.ActiveProfile,
		Profile:           c.Paths.Profile,
	}
}

func (p *PathsConfig) resolve() {
	if p.BaseDir == "" {
		p.BaseDir = "."
	}
	if abs, err := filepath.Abs(p.BaseDir); err == nil {
		p.BaseDir = abs
	}
	configDir := filepath.Join(p.BaseDir, _configDir)

	p.Hosts = p.under(p.Hosts, filepath.Join(configDir, _hostsFile))
	p.Experiments = p.under(p.Experiments, filepath.Join(configDir, _experimentsFile))
	p.Profiles = p.under(p.Profiles, filepath.Join(configDir, _profilesFile))
	p.ActiveProfile = p.under(p.ActiveProfile, filepath.Join(configDir, _activeProfileFile))
	p.Output = p.under(p.Output, filepath.Join(configDir, _outputDir))
}

func (p *PathsConfig) under(path, fallback string) string {
	switch {
	case path == "":
		return fallback
	case filepath.IsAbs(path):
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

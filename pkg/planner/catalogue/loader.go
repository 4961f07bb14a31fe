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

package catalogue

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// LoadOptions names the files the catalogue is built from.
type LoadOptions struct {
	// ExperimentsFile holds the experiment definitions.
	ExperimentsFile string
	// ProfilesFile maps profile names to per-experiment run settings.
	ProfilesFile string
	// ActiveProfileFile contains the name of the profile to apply.
	ActiveProfileFile string
	// Profile overrides the content of ActiveProfileFile when set.
	Profile string
}

type definitionsFile struct {
	Experiments []Definition `yaml:"experiments"`
}

// Load reads the experiment definitions and applies the active profile.
func Load(opts LoadOptions) (*Catalogue, error) {
	definitions, err := LoadDefinitions(opts.ExperimentsFile)
	if err != nil {
		return nil, err
	}

	profile := strings.TrimSpace(opts.Profile)
	if profile == "" {
		data, err := os.ReadFile(opts.ActiveProfileFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read active profile")
		}
		profile = strings.TrimSpace(string(data))
	}
	if profile == "" {
		return nil, errors.Wrapf(ErrInvalidCatalogue, "no active profile in %s", opts.ActiveProfileFile)
	}

	entries, err := LoadProfile(opts.ProfilesFile, profile)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"profile":     profile,
		"experiments": len(definitions),
	}).Info("Loaded experiment catalogue")
	return New(definitions, profile, entries)
}

// LoadDefinitions reads the experiment definitions file.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read experiment definitions")
	}
	var file definitionsFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, errors.Wrapf(ErrInvalidCatalogue, "failed to parse %s: %v", path, err)
	}
	return file.Experiments, nil
}

// LoadProfile reads the entries of the named profile.
func LoadProfile(path, profile string) (map[string]ProfileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profiles")
	}
	var profiles map[string]map[string]ProfileEntry
	if err := yaml.UnmarshalStrict(data, &profiles); err != nil {
		return nil, errors.Wrapf(ErrInvalidCatalogue, "failed to parse %s: %v", path, err)
	}
	entries, ok := profiles[profile]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidCatalogue, "profile %q not found in %s", profile, path)
	}
	return entries, nil
}

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

// Package catalogue builds the immutable experiment catalogue from the
// experiment definitions and the active run-time profile, and flattens it
// into the list of run requests to schedule.
package catalogue

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/duration"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/sorter"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/stringset"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

// ErrInvalidCatalogue is the cause of every catalogue validation failure.
var ErrInvalidCatalogue = errors.New("invalid experiment catalogue")

const _defaultCoresPerRun = 1

// Definition is the static description of an experiment.
type Definition struct {
	Name    string   `yaml:"name"`
	Fuzzers []string `yaml:"fuzzer"`
	Targets []string `yaml:"target"`
	// SymlinkFuzzer maps a fuzzer onto a prior experiment whose corpus is
	// reused instead of scheduling new runs.
	SymlinkFuzzer map[string]string `yaml:"symlink_fuzzer"`
}

// ProfileEntry is the run-time configuration of one experiment within a
// profile.
type ProfileEntry struct {
	Runs        int    `yaml:"runs"`
	Duration    string `yaml:"duration"`
	CoresPerRun *int   `yaml:"cores_per_run"`
}

// Experiment is a definition with the active profile applied.
type Experiment struct {
	Definition
	// Enabled is false for experiments the active profile does not mention.
	Enabled         bool
	Runs            int
	Duration        string
	DurationSeconds int64
	CoresPerRun     int
}

// Catalogue is the validated, read-only set of experiments.
type Catalogue struct {
	profile     string
	experiments []*Experiment
}

// New applies the profile entries to the definitions and validates the
// result. All problems are reported together.
func New(
	definitions []Definition,
	profile string,
	entries map[string]ProfileEntry,
) (*Catalogue, error) {
	var errs *multierror.Error

	names := stringset.New()
	for _, d := range definitions {
		if d.Name == "" {
			errs = multierror.Append(errs, errors.New("experiment without name"))
			continue
		}
		if !names.Add(d.Name) {
			errs = multierror.Append(errs, fmt.Errorf("experiment %q defined more than once", d.Name))
		}
	}

	profiled := stringset.New()
	for name := range entries {
		profiled.Add(name)
	}
	for _, name := range profiled.Difference(names).ToSortedSlice() {
		errs = multierror.Append(errs,
			fmt.Errorf("profile %q configures unknown experiment %q", profile, name))
	}

	c := &Catalogue{profile: profile}
	for _, d := range definitions {
		if d.Name == "" {
			continue
		}
		e, err := newExperiment(d, names, entries)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		c.experiments = append(c.experiments, e)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(ErrInvalidCatalogue, err.Error())
	}

	for _, e := range c.experiments {
		if !e.Enabled {
			log.WithFields(log.Fields{
				"experiment": e.Name,
				"profile":    profile,
			}).Info("Experiment not part of the active profile, skipping")
		}
	}
	return c, nil
}

func newExperiment(
	d Definition,
	names stringset.StringSet,
	entries map[string]ProfileEntry,
) (*Experiment, error) {
	var errs *multierror.Error

	fuzzers := stringset.New()
	for _, fuzzer := range d.Fuzzers {
		if _, err := models.ClassifyFuzzer(fuzzer); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "experiment %q", d.Name))
		}
		if !fuzzers.Add(fuzzer) {
			errs = multierror.Append(errs,
				fmt.Errorf("experiment %q lists fuzzer %q more than once", d.Name, fuzzer))
		}
	}

	var symlinked []string
	for fuzzer := range d.SymlinkFuzzer {
		symlinked = append(symlinked, fuzzer)
	}
	sort.Strings(symlinked)
	for _, fuzzer := range symlinked {
		prior := d.SymlinkFuzzer[fuzzer]
		if !fuzzers.Contains(fuzzer) {
			errs = multierror.Append(errs,
				fmt.Errorf("experiment %q reuses runs of fuzzer %q it does not list", d.Name, fuzzer))
		}
		if prior == d.Name || !names.Contains(prior) {
			errs = multierror.Append(errs,
				fmt.Errorf("experiment %q reuses runs of unknown experiment %q", d.Name, prior))
		}
	}

	e := &Experiment{
		Definition:  d,
		CoresPerRun: _defaultCoresPerRun,
	}
	entry, ok := entries[d.Name]
	if ok {
		e.Enabled = true
		e.Runs = entry.Runs
		e.Duration = entry.Duration
		if entry.Runs < 0 {
			errs = multierror.Append(errs,
				fmt.Errorf("experiment %q: runs must not be negative, got %d", d.Name, entry.Runs))
		}
		if entry.CoresPerRun != nil {
			e.CoresPerRun = *entry.CoresPerRun
			if e.CoresPerRun < 1 {
				errs = multierror.Append(errs,
					fmt.Errorf("experiment %q: cores_per_run must be at least 1, got %d", d.Name, e.CoresPerRun))
			}
		}
		seconds, err := duration.Parse(entry.Duration)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "experiment %q", d.Name))
		} else if seconds == 0 && entry.Runs > 0 {
			errs = multierror.Append(errs,
				fmt.Errorf("experiment %q: duration must be positive", d.Name))
		}
		e.DurationSeconds = seconds
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return e, nil
}

// Profile returns the name of the applied profile.
func (c *Catalogue) Profile() string {
	return c.profile
}

// Experiments returns copies of the experiments in catalogue order.
func (c *Catalogue) Experiments() []Experiment {
	result := make([]Experiment, 0, len(c.experiments))
	for _, e := range c.experiments {
		result = append(result, e.clone())
	}
	return result
}

func (e *Experiment) clone() Experiment {
	result := *e
	result.Fuzzers = append([]string(nil), e.Fuzzers...)
	result.Targets = append([]string(nil), e.Targets...)
	if e.SymlinkFuzzer != nil {
		result.SymlinkFuzzer = make(map[string]string, len(e.SymlinkFuzzer))
		for k, v := range e.SymlinkFuzzer {
			result.SymlinkFuzzer[k] = v
		}
	}
	return result
}

// Runs flattens the catalogue into run requests. Experiments are ordered by
// descending duration, ties keep catalogue order, so that long experiments
// are scheduled first. Fuzzers that reuse a prior experiment's runs are
// skipped.
func (c *Catalogue) Runs() []*models.RunRequest {
	experiments := make([]*Experiment, len(c.experiments))
	copy(experiments, c.experiments)
	byDuration := func(p, q *Experiment) bool {
		return p.DurationSeconds < q.DurationSeconds
	}
	sorter.OrderedBy(sorter.Descending[*Experiment](byDuration)).Sort(experiments)

	var runs []*models.RunRequest
	for _, e := range experiments {
		if !e.Enabled {
			continue
		}
		for _, fuzzer := range e.Fuzzers {
			if prior, ok := e.SymlinkFuzzer[fuzzer]; ok {
				log.WithFields(log.Fields{
					"experiment": e.Name,
					"fuzzer":     fuzzer,
					"reused":     prior,
				}).Debug("Reusing runs of prior experiment")
				continue
			}
			// validated in New
			family, _ := models.ClassifyFuzzer(fuzzer)

			for _, target := range e.Targets {
				for runID := 1; runID <= e.Runs; runID++ {
					runs = append(runs, &models.RunRequest{
						Experiment:      e.Name,
						Fuzzer:          fuzzer,
						Family:          family,
						Target:          target,
						RunID:           runID,
						CoresPerRun:     e.CoresPerRun,
						Duration:        e.Duration,
						DurationSeconds: e.DurationSeconds,
					})
				}
			}
		}
	}
	return runs
}

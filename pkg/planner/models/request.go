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

package models

import (
	"fmt"
)

// RunKey identifies one fuzzing run across the whole catalogue.
type RunKey struct {
	Experiment string
	Fuzzer     string
	Target     string
	RunID      int
}

func (k RunKey) String() string {
	return fmt.Sprintf("%s/%s/%s#%d", k.Experiment, k.Fuzzer, k.Target, k.RunID)
}

// RunRequest is one required execution of a fuzzer against a target.
type RunRequest struct {
	// Experiment names the experiment and groups the output location.
	Experiment string
	Fuzzer     string
	Family     Family
	Target     string
	// RunID is the 1-based repetition index within the experiment.
	RunID       int
	CoresPerRun int
	// Duration is the human readable duration from the profile.
	Duration        string
	DurationSeconds int64
}

// Key returns the identity of the request.
func (r *RunRequest) Key() RunKey {
	return RunKey{
		Experiment: r.Experiment,
		Fuzzer:     r.Fuzzer,
		Target:     r.Target,
		RunID:      r.RunID,
	}
}

// CPUSeconds is the core time the run occupies.
func (r *RunRequest) CPUSeconds() int64 {
	return r.DurationSeconds * int64(r.CoresPerRun)
}

func (r *RunRequest) String() string {
	return fmt.Sprintf("%s (%d core(s), %s)", r.Key(), r.CoresPerRun, r.Duration)
}

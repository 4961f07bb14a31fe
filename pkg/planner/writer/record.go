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

package writer

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

// HostRunRecord is the on-disk run config of one host, consumed by the
// experiment runner on that host.
type HostRunRecord struct {
	PlanID string      `yaml:"plan_id"`
	Cores  CoresRecord `yaml:"cores"`
	Runs   []RunRecord `yaml:"runs"`
}

// CoresRecord lists the cores reserved per fuzzer family.
type CoresRecord struct {
	Hoedur   int `yaml:"hoedur"`
	Fuzzware int `yaml:"fuzzware"`
}

// RunRecord is a single fuzzing run. Output is the experiment name and
// selects the result directory.
type RunRecord struct {
	Output      string `yaml:"output"`
	Fuzzer      string `yaml:"fuzzer"`
	Target      string `yaml:"target"`
	RunID       int    `yaml:"run_id"`
	CoresPerRun int    `yaml:"cores_per_run"`
	Duration    string `yaml:"duration"`
}

// NewHostRunRecord converts a scheduled host config into its record.
func NewHostRunRecord(planID string, host *models.HostRunConfig) *HostRunRecord {
	record := &HostRunRecord{
		PlanID: planID,
		Cores: CoresRecord{
			Hoedur:   host.Cores.Hoedur,
			Fuzzware: host.Cores.Fuzzware,
		},
		Runs: make([]RunRecord, 0, len(host.Runs)),
	}
	for _, r := range host.Runs {
		record.Runs = append(record.Runs, RunRecord{
			Output:      r.Experiment,
			Fuzzer:      r.Fuzzer,
			Target:      r.Target,
			RunID:       r.RunID,
			CoresPerRun: r.CoresPerRun,
			Duration:    r.Duration,
		})
	}
	return record
}

// ReadHostRunRecord loads a record written by Write.
func ReadHostRunRecord(path string) (*HostRunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	record := &HostRunRecord{}
	if err := yaml.UnmarshalStrict(data, record); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return record, nil
}

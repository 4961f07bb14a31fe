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
	"github.com/uber-go/tally/v4"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

// Metrics contains all the metrics relevant to the run planner
type Metrics struct {
	// Rounds counts the scheduling rounds.
	Rounds tally.Counter
	// Deadlocks counts rounds that could not place any run.
	Deadlocks tally.Counter
	// PendingRuns is the number of runs still waiting for a host.
	PendingRuns tally.Gauge
	// UnsuitableHosts counts hosts smaller than the largest cores_per_run.
	UnsuitableHosts tally.Counter

	// EstimatedSeconds is the estimated wall-clock time of the critical
	// host.
	EstimatedSeconds tally.Gauge
	// ConservativeSeconds adds the longest round and the overhead margin.
	ConservativeSeconds tally.Gauge

	// PlansWritten counts the run config files written.
	PlansWritten tally.Counter
	// PlansWrittenFail counts failed run config writes.
	PlansWrittenFail tally.Counter
	// Uploads counts run configs pushed to remote hosts.
	Uploads tally.Counter
	// UploadsFail counts failed host checks and uploads.
	UploadsFail tally.Counter

	families map[models.Family]*FamilyMetrics
}

// FamilyMetrics are the metrics kept per fuzzer family.
type FamilyMetrics struct {
	// Cores is the number of cores assigned to the family over all hosts.
	Cores tally.Gauge
	// LeftoverCores are cores of the family budget no host could take.
	LeftoverCores tally.Gauge
	// DemandSeconds is the CPU time requested by the family.
	DemandSeconds tally.Gauge
	// RunsAssigned counts runs bound to a host.
	RunsAssigned tally.Counter
	// RunsPacked counts runs sharing a core group with a previous run.
	RunsPacked tally.Counter
	// CoreGroups counts reserved core groups.
	CoreGroups tally.Counter
}

// NewMetrics returns a new Metrics struct with all metrics initialized and
// rooted below the given tally scope
func NewMetrics(scope tally.Scope) *Metrics {
	scheduleScope := scope.SubScope("schedule")
	planScope := scope.SubScope("plan")
	uploadScope := scope.SubScope("upload")

	planSuccessScope := planScope.Tagged(map[string]string{"result": "success"})
	planFailScope := planScope.Tagged(map[string]string{"result": "fail"})
	uploadSuccessScope := uploadScope.Tagged(map[string]string{"result": "success"})
	uploadFailScope := uploadScope.Tagged(map[string]string{"result": "fail"})

	m := &Metrics{
		Rounds:          scheduleScope.Counter("rounds"),
		Deadlocks:       scheduleScope.Counter("deadlocks"),
		PendingRuns:     scheduleScope.Gauge("pending_runs"),
		UnsuitableHosts: scheduleScope.Counter("unsuitable_hosts"),

		EstimatedSeconds:    scheduleScope.Gauge("estimated_seconds"),
		ConservativeSeconds: scheduleScope.Gauge("conservative_seconds"),

		PlansWritten:     planSuccessScope.Counter("written"),
		PlansWrittenFail: planFailScope.Counter("written"),
		Uploads:          uploadSuccessScope.Counter("host"),
		UploadsFail:      uploadFailScope.Counter("host"),

		families: make(map[models.Family]*FamilyMetrics),
	}

	for _, f := range models.Families {
		familyScope := scope.SubScope("family").Tagged(map[string]string{"family": f.String()})
		m.families[f] = &FamilyMetrics{
			Cores:         familyScope.Gauge("cores"),
			LeftoverCores: familyScope.Gauge("leftover_cores"),
			DemandSeconds: familyScope.Gauge("demand_seconds"),
			RunsAssigned:  familyScope.Counter("runs_assigned"),
			RunsPacked:    familyScope.Counter("runs_packed"),
			CoreGroups:    familyScope.Counter("core_groups"),
		}
	}
	return m
}

// Family returns the metrics of one fuzzer family.
func (m *Metrics) Family(f models.Family) *FamilyMetrics {
	return m.families[f]
}

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

package scheduler

import (
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

// HostEstimate is the expected busy time of one host.
type HostEstimate struct {
	Hostname string
	// Seconds is the expected runtime per family, absent for families
	// without allocated cores.
	Seconds map[models.Family]float64
}

// Max returns the longest family runtime of the host.
func (h HostEstimate) Max() float64 {
	var longest float64
	for _, s := range h.Seconds {
		if s > longest {
			longest = s
		}
	}
	return longest
}

// Estimate is the expected wall-clock time of a plan.
type Estimate struct {
	Hosts []HostEstimate
	// CriticalHost is the host with the longest expected runtime.
	CriticalHost string
	// CriticalSeconds is the runtime of the critical host.
	CriticalSeconds float64
	// ConservativeSeconds adds the longest round and the overhead margin to
	// the critical path.
	ConservativeSeconds float64
}

// Estimate computes the expected runtime of the plan. Runs of a family on a
// host are assumed to share the family's cores perfectly, so each host and
// family takes sum(duration * cores_per_run) / allocated cores.
func (s *Scheduler) Estimate(plan *Plan) *Estimate {
	est := &Estimate{}
	for _, host := range plan.Hosts {
		h := HostEstimate{
			Hostname: host.Host.Hostname,
			Seconds:  make(map[models.Family]float64),
		}
		for _, f := range models.Families {
			cores := host.Cores.Get(f)
			if cores == 0 {
				continue
			}
			var cpuSeconds int64
			for _, r := range host.RunsOf(f) {
				cpuSeconds += r.CPUSeconds()
			}
			h.Seconds[f] = float64(cpuSeconds) / float64(cores)
		}
		if longest := h.Max(); longest > est.CriticalSeconds || est.CriticalHost == "" {
			est.CriticalHost = h.Hostname
			est.CriticalSeconds = longest
		}
		est.Hosts = append(est.Hosts, h)
	}

	est.ConservativeSeconds = (est.CriticalSeconds + float64(plan.LongestRoundSeconds)) *
		(1 + s.config.OverheadFraction())

	s.metrics.EstimatedSeconds.Update(est.CriticalSeconds)
	s.metrics.ConservativeSeconds.Update(est.ConservativeSeconds)
	return est
}

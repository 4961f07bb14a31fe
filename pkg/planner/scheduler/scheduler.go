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
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/queue"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/cores"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/metrics"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

// ErrSchedulingDeadlock is the cause of a DeadlockError.
var ErrSchedulingDeadlock = errors.New("scheduling deadlock")

// DeadlockError is returned when a round could not place any run. It holds
// every run that was still pending.
type DeadlockError struct {
	Round     int
	Remaining []*models.RunRequest
}

func (e *DeadlockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in round %d: could not find suitable host for %d remaining run(s)",
		ErrSchedulingDeadlock, e.Round, len(e.Remaining))
	for _, r := range e.Remaining {
		fmt.Fprintf(&b, "\n\t- %s", r)
	}
	return b.String()
}

// Cause returns ErrSchedulingDeadlock for errors.Cause.
func (e *DeadlockError) Cause() error {
	return ErrSchedulingDeadlock
}

// Unwrap returns ErrSchedulingDeadlock for errors.Is.
func (e *DeadlockError) Unwrap() error {
	return ErrSchedulingDeadlock
}

// pendingRun is a queued request with its position in catalogue order.
type pendingRun struct {
	*models.RunRequest
	seq int
}

// Plan is the outcome of a successful scheduling pass.
type Plan struct {
	// Hosts are in inventory order.
	Hosts []*models.HostRunConfig
	// Rounds is the number of scheduling rounds it took.
	Rounds int
	// LongestRoundSeconds is the largest round duration of any family.
	LongestRoundSeconds int64
}

// Scheduler assigns run requests to host core groups round by round.
type Scheduler struct {
	config  Config
	metrics *metrics.Metrics

	hosts   []*models.HostRunConfig
	pending map[models.Family]queue.Queue[*pendingRun]
}

// New creates a scheduler for the hosts of the core allocation.
func New(cfg Config, allocation *cores.Allocation, m *metrics.Metrics) *Scheduler {
	s := &Scheduler{
		config:  cfg.withDefaults(),
		metrics: m,
		pending: make(map[models.Family]queue.Queue[*pendingRun]),
	}
	for _, h := range allocation.Hosts {
		s.hosts = append(s.hosts, models.NewHostRunConfig(h.Host, h.Cores))
	}
	for _, f := range models.Families {
		s.pending[f] = queue.NewQueue[*pendingRun](f.String())
	}
	return s
}

// Config returns the effective scheduler config.
func (s *Scheduler) Config() Config {
	return s.config
}

// Schedule places every run on a host or fails with a DeadlockError. Runs
// are taken first-fit in the given order, which is expected to put long
// experiments first.
func (s *Scheduler) Schedule(runs []*models.RunRequest) (*Plan, error) {
	for i, r := range runs {
		s.pending[r.Family].Enqueue(&pendingRun{RunRequest: r, seq: i})
	}
	s.preflight(runs)

	plan := &Plan{Hosts: s.hosts}
	for s.pendingCount() > 0 {
		plan.Rounds++
		s.metrics.Rounds.Inc(1)
		s.metrics.PendingRuns.Update(float64(s.pendingCount()))

		durations := s.roundDurations()
		for _, d := range durations {
			if d > plan.LongestRoundSeconds {
				plan.LongestRoundSeconds = d
			}
		}

		assigned := 0
		for _, host := range s.hosts {
			for _, f := range models.Families {
				assigned += s.fillCoreGroups(host, f, durations[f])
			}
		}

		log.WithFields(log.Fields{
			"round":    plan.Rounds,
			"assigned": assigned,
			"pending":  s.pendingCount(),
		}).Debug("Scheduling round finished")

		if assigned == 0 {
			s.metrics.Deadlocks.Inc(1)
			err := &DeadlockError{Round: plan.Rounds, Remaining: s.remaining()}
			log.WithFields(log.Fields{
				"round":     plan.Rounds,
				"remaining": len(err.Remaining),
			}).Error("Got deadlock during scheduling")
			return nil, err
		}
	}
	s.metrics.PendingRuns.Update(0)
	return plan, nil
}

// preflight warns about hosts too small for the largest cores_per_run and
// about runs that no host can take at all. Neither is fatal by itself.
func (s *Scheduler) preflight(runs []*models.RunRequest) {
	maxCoresPerRun, maxHostCores := 0, 0
	for _, r := range runs {
		if r.CoresPerRun > maxCoresPerRun {
			maxCoresPerRun = r.CoresPerRun
		}
	}
	for _, h := range s.hosts {
		if h.Host.Cores > maxHostCores {
			maxHostCores = h.Host.Cores
		}
		if h.Host.Cores < maxCoresPerRun {
			s.metrics.UnsuitableHosts.Inc(1)
			log.WithFields(log.Fields{
				"host":          h.Host.Hostname,
				"host_cores":    h.Host.Cores,
				"cores_per_run": maxCoresPerRun,
			}).Warn("Host has less cores than required by some experiments and " +
				"is not suitable for all configured experiments")
		}
	}

	oversized := 0
	for _, r := range runs {
		if r.CoresPerRun > maxHostCores {
			oversized++
		}
	}
	if oversized > 0 {
		log.WithFields(log.Fields{
			"runs":          oversized,
			"max_host_core": maxHostCores,
			"cores_per_run": maxCoresPerRun,
		}).Warn("Insufficient cores: no host can take some runs")
	}
}

// roundDurations returns the time budget of the next round per family.
func (s *Scheduler) roundDurations() map[models.Family]int64 {
	durations := make(map[models.Family]int64, len(models.Families))
	var first *pendingRun
	for _, f := range models.Families {
		head, ok := s.pending[f].Peek()
		if !ok {
			continue
		}
		durations[f] = head.DurationSeconds
		if first == nil || head.seq < first.seq {
			first = head
		}
	}

	if s.config.RoundPolicy == RoundPolicyGlobal && first != nil {
		for _, f := range models.Families {
			durations[f] = first.DurationSeconds
		}
	}
	return durations
}

// fillCoreGroups reserves core groups for the family on the host while
// spare cores remain, and packs as many runs into each group as fit into the
// round duration. It returns the number of runs assigned.
func (s *Scheduler) fillCoreGroups(
	host *models.HostRunConfig,
	f models.Family,
	roundDuration int64,
) int {
	pending := s.pending[f]
	familyMetrics := s.metrics.Family(f)
	spare := host.Cores.Get(f)
	assigned := 0

	for spare > 0 {
		available := spare
		first, ok := pending.PopFirst(func(r *pendingRun) bool {
			return r.CoresPerRun <= available
		})
		if !ok {
			break
		}

		// reserve core(s)
		group := first.CoresPerRun
		spare -= group
		familyMetrics.CoreGroups.Inc(1)

		// a group always takes its first run, further runs share the
		// group's cores sequentially while the round duration allows
		used := first.DurationSeconds
		s.assign(host, first)
		assigned++

		for {
			next, pos, ok := pending.Find(func(r *pendingRun) bool {
				return r.CoresPerRun <= group
			})
			if !ok || used+next.DurationSeconds > roundDuration {
				break
			}
			pending.Remove(pos)
			used += next.DurationSeconds
			s.assign(host, next)
			familyMetrics.RunsPacked.Inc(1)
			assigned++
		}
	}
	return assigned
}

func (s *Scheduler) assign(host *models.HostRunConfig, r *pendingRun) {
	host.Assign(r.RunRequest)
	s.metrics.Family(r.Family).RunsAssigned.Inc(1)
	log.WithFields(log.Fields{
		"host":          host.Host.Hostname,
		"run":           r.Key().String(),
		"cores_per_run": r.CoresPerRun,
	}).Debug("Assigned run")
}

func (s *Scheduler) pendingCount() int {
	count := 0
	for _, q := range s.pending {
		count += q.Length()
	}
	return count
}

// remaining returns the pending runs in catalogue order.
func (s *Scheduler) remaining() []*models.RunRequest {
	var runs []*pendingRun
	for _, f := range models.Families {
		runs = append(runs, s.pending[f].Items()...)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].seq < runs[j].seq
	})

	result := make([]*models.RunRequest, 0, len(runs))
	for _, r := range runs {
		result = append(result, r.RunRequest)
	}
	return result
}

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

// Package cores splits the fleet's core pool between the fuzzer families in
// proportion to the CPU time each family asks for, and distributes the two
// budgets over the hosts.
package cores

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

var (
	// ErrNoDemand is returned when no family requests any CPU time.
	ErrNoDemand = errors.New("no CPU time requested by any fuzzer family")
	// ErrInsufficientCores is returned when the core pool cannot fit the
	// largest core requirement.
	ErrInsufficientCores = errors.New("insufficient cores")
	// ErrDemandOverflow is returned when the requested CPU time does not fit
	// into an int64 number of seconds.
	ErrDemandOverflow = errors.New("requested CPU time out of range")
)

// FamilyDemand summarizes what one family asks for.
type FamilyDemand struct {
	// Seconds is the sum of duration * cores_per_run over the family's runs.
	Seconds int64
	// MinCores is the largest cores_per_run of the family, at least 1.
	MinCores int
}

// Demand is the demand of both families.
type Demand struct {
	Hoedur   FamilyDemand
	Fuzzware FamilyDemand
}

// DemandOf sums up the demand of the given runs. The sum of both families
// must fit into an int64, otherwise ErrDemandOverflow is returned.
func DemandOf(runs []*models.RunRequest) (Demand, error) {
	d := Demand{
		Hoedur:   FamilyDemand{MinCores: 1},
		Fuzzware: FamilyDemand{MinCores: 1},
	}
	var total int64
	for _, r := range runs {
		cpu, ok := mulInt64(r.DurationSeconds, int64(r.CoresPerRun))
		if ok {
			total, ok = addInt64(total, cpu)
		}
		if !ok {
			return d, errors.Wrapf(ErrDemandOverflow, "run %s", r.Key())
		}

		fd := d.get(r.Family)
		fd.Seconds += cpu
		if r.CoresPerRun > fd.MinCores {
			fd.MinCores = r.CoresPerRun
		}
	}
	return d, nil
}

func (d *Demand) get(f models.Family) *FamilyDemand {
	if f == models.Hoedur {
		return &d.Hoedur
	}
	return &d.Fuzzware
}

// Get returns the demand of one family.
func (d Demand) Get(f models.Family) FamilyDemand {
	return *d.get(f)
}

// MinCoresOverall is the larger of the two family minimums. It is the
// rounding granularity of the global split.
func (d Demand) MinCoresOverall() int {
	if d.Hoedur.MinCores > d.Fuzzware.MinCores {
		return d.Hoedur.MinCores
	}
	return d.Fuzzware.MinCores
}

// Split partitions totalCores between the families proportionally to their
// demanded CPU seconds. Leftover cores that do not make up a full
// MinCoresOverall unit move from the larger share to the smaller one; on a
// tie they move from hoedur to fuzzware.
func Split(totalCores int, demand Demand) (models.CoreAllocation, error) {
	var split models.CoreAllocation
	if demand.Hoedur.Seconds < 0 || demand.Fuzzware.Seconds < 0 {
		return split, ErrDemandOverflow
	}
	sum, ok := addInt64(demand.Hoedur.Seconds, demand.Fuzzware.Seconds)
	if !ok {
		return split, ErrDemandOverflow
	}
	if sum == 0 || totalCores < 0 {
		return split, ErrNoDemand
	}

	// floor(total * scale) without floating point rounding, the fuzzware
	// share is the ceiling of the complement.
	hi, lo := bits.Mul64(uint64(totalCores), uint64(demand.Hoedur.Seconds))
	quo, _ := bits.Div64(hi, lo, uint64(sum))
	split.Hoedur = int(quo)
	split.Fuzzware = totalCores - split.Hoedur

	minCores := demand.MinCoresOverall()
	if split.Hoedur < split.Fuzzware {
		unused := split.Fuzzware % minCores
		split.Hoedur += unused
		split.Fuzzware -= unused
	} else {
		unused := split.Hoedur % minCores
		split.Hoedur -= unused
		split.Fuzzware += unused
	}

	log.WithFields(log.Fields{
		"total_cores":    totalCores,
		"hoedur_cores":   split.Hoedur,
		"fuzzware_cores": split.Fuzzware,
	}).Info("Split cores based on experiment runtime")

	smaller := split.Hoedur
	if split.Fuzzware < smaller {
		smaller = split.Fuzzware
	}
	if smaller < minCores {
		if split.Total() < minCores {
			return split, errors.Wrapf(ErrInsufficientCores,
				"%d core(s) available, configured experiments need at least %d",
				split.Total(), minCores)
		}
		if demand.Hoedur.Seconds > 0 && demand.Fuzzware.Seconds > 0 {
			log.WithFields(log.Fields{
				"min_cores":      minCores,
				"hoedur_cores":   split.Hoedur,
				"fuzzware_cores": split.Fuzzware,
			}).Warn("Less than the minimum cores available for one fuzzer family, " +
				"experiments will fall back to running sequentially and may take longer")
		}
	}
	return split, nil
}

// HostAllocation is the core split of one host.
type HostAllocation struct {
	Host  models.HostEntry
	Cores models.CoreAllocation
}

// Allocation is the result of distributing the global split over the hosts.
type Allocation struct {
	// Hosts are in inventory order.
	Hosts []HostAllocation
	// Leftover are budget cores no host could take.
	Leftover models.CoreAllocation
}

// Assign hands out the global budget host by host: fuzzware first, rounded
// down to a multiple of its minimum cores, then hoedur from what is left on
// the host.
func Assign(hosts []models.HostEntry, budget models.CoreAllocation, demand Demand) *Allocation {
	result := &Allocation{Hosts: make([]HostAllocation, 0, len(hosts))}
	remaining := budget

	for _, host := range hosts {
		var cores models.CoreAllocation

		fuzzware := minInt(remaining.Fuzzware, host.Cores)
		fuzzware -= fuzzware % demand.Fuzzware.MinCores
		remaining.Fuzzware -= fuzzware
		cores.Fuzzware = fuzzware

		hoedur := minInt(remaining.Hoedur, host.Cores-fuzzware)
		hoedur -= hoedur % demand.Hoedur.MinCores
		remaining.Hoedur -= hoedur
		cores.Hoedur = hoedur

		log.WithFields(log.Fields{
			"host":           host.Hostname,
			"host_cores":     host.Cores,
			"hoedur_cores":   cores.Hoedur,
			"fuzzware_cores": cores.Fuzzware,
		}).Debug("Assigned host cores")
		result.Hosts = append(result.Hosts, HostAllocation{Host: host, Cores: cores})
	}

	result.Leftover = remaining
	if remaining.Total() > 0 {
		log.WithFields(log.Fields{
			"fuzzware_cores": remaining.Fuzzware,
			"hoedur_cores":   remaining.Hoedur,
		}).Warn("Could not use all cores due to configured cores_per_run")
	}
	return result
}

// Allocate runs Split over the total cores of the hosts and Assign over the
// hosts for the given runs.
func Allocate(hosts []models.HostEntry, runs []*models.RunRequest) (*Allocation, Demand, error) {
	demand, err := DemandOf(runs)
	if err != nil {
		return nil, demand, err
	}
	total := 0
	for _, h := range hosts {
		total += h.Cores
	}
	log.WithFields(log.Fields{
		"total_cores": total,
		"hosts":       len(hosts),
	}).Info("Found available cores")

	split, err := Split(total, demand)
	if err != nil {
		return nil, demand, err
	}
	return Assign(hosts, split, demand), demand, nil
}

// addInt64 adds two non-negative values, ok is false on overflow.
func addInt64(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// mulInt64 multiplies two non-negative values, ok is false on overflow.
func mulInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

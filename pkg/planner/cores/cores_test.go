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

package cores

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/catalogue"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

func intPtr(v int) *int {
	return &v
}

func newRun(fuzzer string, family models.Family, cores int, seconds int64) *models.RunRequest {
	return &models.RunRequest{
		Experiment:      "e",
		Fuzzer:          fuzzer,
		Family:          family,
		Target:          "t",
		RunID:           1,
		CoresPerRun:     cores,
		DurationSeconds: seconds,
	}
}

type CoresTestSuite struct {
	suite.Suite
	hosts []models.HostEntry
	runs  []*models.RunRequest
}

func TestCores(t *testing.T) {
	suite.Run(t, new(CoresTestSuite))
}

func (suite *CoresTestSuite) SetupTest() {
	suite.hosts = []models.HostEntry{
		{Hostname: "h1", Cores: 4},
		{Hostname: "h2", Cores: 2},
	}
	suite.runs = []*models.RunRequest{
		newRun("fuzzware", models.Fuzzware, 2, 3600),
		newRun("fuzzware", models.Fuzzware, 2, 3600),
		newRun("fuzzware", models.Fuzzware, 2, 3600),
		newRun("hoedur", models.Hoedur, 1, 3600),
		newRun("hoedur", models.Hoedur, 1, 3600),
	}
}

func (suite *CoresTestSuite) TestDemandOf() {
	demand, err := DemandOf(suite.runs)
	suite.NoError(err)
	suite.Equal(FamilyDemand{Seconds: 21600, MinCores: 2}, demand.Fuzzware)
	suite.Equal(FamilyDemand{Seconds: 7200, MinCores: 1}, demand.Hoedur)
	suite.Equal(2, demand.MinCoresOverall())
	suite.Equal(demand.Hoedur, demand.Get(models.Hoedur))
}

func (suite *CoresTestSuite) TestDemandOfEmptyFamily() {
	demand, err := DemandOf(suite.runs[:3])
	suite.NoError(err)
	suite.Equal(FamilyDemand{Seconds: 0, MinCores: 1}, demand.Hoedur)
}

// TestSplitProportional checks the fleet scenario of 4 + 2 cores, where
// fuzzware asks for three times the CPU time of hoedur.
func (suite *CoresTestSuite) TestSplitProportional() {
	demand, err := DemandOf(suite.runs)
	suite.NoError(err)
	split, err := Split(6, demand)
	suite.NoError(err)
	// floor(6 * 0.25) = 1 for hoedur, 5 for fuzzware, one fuzzware core
	// does not make a full 2 core unit and moves to hoedur
	suite.Equal(models.CoreAllocation{Hoedur: 2, Fuzzware: 4}, split)
}

func (suite *CoresTestSuite) TestAllocate() {
	allocation, demand, err := Allocate(suite.hosts, suite.runs)
	suite.NoError(err)
	suite.Equal(2, demand.Fuzzware.MinCores)

	suite.Equal([]HostAllocation{
		{Host: suite.hosts[0], Cores: models.CoreAllocation{Hoedur: 0, Fuzzware: 4}},
		{Host: suite.hosts[1], Cores: models.CoreAllocation{Hoedur: 2, Fuzzware: 0}},
	}, allocation.Hosts)
	suite.Equal(models.CoreAllocation{}, allocation.Leftover)

	for _, h := range allocation.Hosts {
		suite.True(h.Cores.Total() <= h.Host.Cores)
	}
}

func (suite *CoresTestSuite) TestAllocateIsIdempotent() {
	first, _, err := Allocate(suite.hosts, suite.runs)
	suite.NoError(err)
	second, _, err := Allocate(suite.hosts, suite.runs)
	suite.NoError(err)
	suite.Equal(first, second)
}

func (suite *CoresTestSuite) TestAllocateInsufficientCores() {
	_, _, err := Allocate([]models.HostEntry{{Hostname: "tiny", Cores: 1}}, suite.runs)
	suite.Error(err)
	suite.Equal(ErrInsufficientCores, errors.Cause(err))
	suite.Contains(err.Error(), "1 core(s) available, configured experiments need at least 2")
}

func (suite *CoresTestSuite) TestAllocateNoRuns() {
	_, _, err := Allocate(suite.hosts, nil)
	suite.Equal(ErrNoDemand, err)
}

func TestSplitTieMovesFromHoedur(t *testing.T) {
	demand := Demand{
		Hoedur:   FamilyDemand{Seconds: 100, MinCores: 4},
		Fuzzware: FamilyDemand{Seconds: 100, MinCores: 1},
	}
	split, err := Split(6, demand)
	require.NoError(t, err)
	// 3 vs 3 is a tie, the 3 hoedur cores below the 4 core unit move
	assert.Equal(t, models.CoreAllocation{Hoedur: 0, Fuzzware: 6}, split)
}

func TestSplitSmallerShareGetsRemainder(t *testing.T) {
	demand := Demand{
		Hoedur:   FamilyDemand{Seconds: 100, MinCores: 2},
		Fuzzware: FamilyDemand{Seconds: 100, MinCores: 2},
	}
	split, err := Split(5, demand)
	require.NoError(t, err)
	// floor(2.5) = 2 hoedur, 3 fuzzware, the odd fuzzware core moves
	assert.Equal(t, models.CoreAllocation{Hoedur: 3, Fuzzware: 2}, split)
}

func TestSplitSingleFamily(t *testing.T) {
	demand := Demand{
		Hoedur:   FamilyDemand{Seconds: 3600, MinCores: 1},
		Fuzzware: FamilyDemand{MinCores: 1},
	}
	split, err := Split(8, demand)
	require.NoError(t, err)
	assert.Equal(t, models.CoreAllocation{Hoedur: 8, Fuzzware: 0}, split)
}

func TestSplitLargeDemandDoesNotOverflow(t *testing.T) {
	demand := Demand{
		Hoedur:   FamilyDemand{Seconds: 1 << 60, MinCores: 1},
		Fuzzware: FamilyDemand{Seconds: 1 << 60, MinCores: 1},
	}
	split, err := Split(1000, demand)
	require.NoError(t, err)
	assert.Equal(t, models.CoreAllocation{Hoedur: 500, Fuzzware: 500}, split)
}

func TestSplitRejectsDemandOverflow(t *testing.T) {
	demand := Demand{
		Hoedur:   FamilyDemand{Seconds: math.MaxInt64, MinCores: 1},
		Fuzzware: FamilyDemand{Seconds: 10, MinCores: 1},
	}
	var err error
	require.NotPanics(t, func() {
		_, err = Split(16, demand)
	})
	assert.Equal(t, ErrDemandOverflow, err)

	demand.Hoedur.Seconds = -1
	_, err = Split(16, demand)
	assert.Equal(t, ErrDemandOverflow, err)
}

func TestDemandOfOverflow(t *testing.T) {
	tests := map[string][]*models.RunRequest{
		"single run": {
			newRun("hoedur", models.Hoedur, 2, math.MaxInt64),
		},
		"sum of runs": {
			newRun("hoedur", models.Hoedur, 1, math.MaxInt64-5),
			newRun("fuzzware", models.Fuzzware, 1, 10),
		},
	}
	for name, runs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DemandOf(runs)
			assert.Equal(t, ErrDemandOverflow, errors.Cause(err))
		})
	}
}

func TestAllocateHugeCatalogueDuration(t *testing.T) {
	cat, err := catalogue.New(
		[]catalogue.Definition{
			{Name: "long", Fuzzers: []string{"hoedur"}, Targets: []string{"t"}},
			{Name: "short", Fuzzers: []string{"fuzzware"}, Targets: []string{"t"}},
		},
		"huge",
		map[string]catalogue.ProfileEntry{
			"long":  {Runs: 1, Duration: "9223372036854775807s", CoresPerRun: intPtr(2)},
			"short": {Runs: 1, Duration: "10s"},
		},
	)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, _, err = Allocate([]models.HostEntry{{Hostname: "h1", Cores: 16}}, cat.Runs())
	})
	assert.Equal(t, ErrDemandOverflow, errors.Cause(err))
	assert.Contains(t, err.Error(), "long/hoedur/t#1")
}

func TestAssignRoundsToFamilyMinimum(t *testing.T) {
	hosts := []models.HostEntry{
		{Hostname: "a", Cores: 7},
		{Hostname: "b", Cores: 3},
		{Hostname: "c", Cores: 8},
	}
	demand := Demand{
		Hoedur:   FamilyDemand{Seconds: 1, MinCores: 2},
		Fuzzware: FamilyDemand{Seconds: 1, MinCores: 3},
	}
	allocation := Assign(hosts, models.CoreAllocation{Hoedur: 8, Fuzzware: 10}, demand)

	// a: 6 fuzzware, 0 of 1 remaining for hoedur
	// b: 3 fuzzware, none left for hoedur
	// c: 1 fuzzware rounds to 0, 8 hoedur
	assert.Equal(t, models.CoreAllocation{Hoedur: 0, Fuzzware: 6}, allocation.Hosts[0].Cores)
	assert.Equal(t, models.CoreAllocation{Hoedur: 0, Fuzzware: 3}, allocation.Hosts[1].Cores)
	assert.Equal(t, models.CoreAllocation{Hoedur: 8, Fuzzware: 0}, allocation.Hosts[2].Cores)
	assert.Equal(t, models.CoreAllocation{Hoedur: 0, Fuzzware: 1}, allocation.Leftover)

	for _, h := range allocation.Hosts {
		assert.True(t, h.Cores.Total() <= h.Host.Cores)
		assert.Zero(t, h.Cores.Fuzzware%demand.Fuzzware.MinCores)
		assert.Zero(t, h.Cores.Hoedur%demand.Hoedur.MinCores)
	}
}

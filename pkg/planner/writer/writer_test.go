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
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally/v4"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/metrics"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

type WriterTestSuite struct {
	suite.Suite
	dir    string
	writer *Writer
	hosts  []*models.HostRunConfig
}

func TestWriter(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

func (suite *WriterTestSuite) SetupTest() {
	suite.dir = filepath.Join(suite.T().TempDir(), "host-run-configs")
	suite.writer = New(suite.dir, metrics.NewMetrics(tally.NoopScope))

	h1 := models.NewHostRunConfig(
		models.HostEntry{Hostname: "h1", Cores: 4},
		models.CoreAllocation{Hoedur: 1, Fuzzware: 3},
	)
	h1.Assign(&models.RunRequest{
		Experiment:      "01-bug-finding",
		Fuzzer:          "hoedur-dict",
		Family:          models.Hoedur,
		Target:          "CVE-2020-10064",
		RunID:           1,
		CoresPerRun:     1,
		Duration:        "24h",
		DurationSeconds: 86400,
	})
	h1.Assign(&models.RunRequest{
		Experiment:      "01-bug-finding",
		Fuzzer:          "fuzzware",
		Family:          models.Fuzzware,
		Target:          "CVE-2020-10064",
		RunID:           2,
		CoresPerRun:     3,
		Duration:        "90m",
		DurationSeconds: 5400,
	})
	idle := models.NewHostRunConfig(
		models.HostEntry{Hostname: "idle", Cores: 2},
		models.CoreAllocation{},
	)
	suite.hosts = []*models.HostRunConfig{h1, idle}
}

func (suite *WriterTestSuite) TestWriteAndRead() {
	paths, err := suite.writer.Write(suite.hosts)
	suite.Require().NoError(err)
	suite.Equal([]string{
		filepath.Join(suite.dir, "h1.yml"),
		filepath.Join(suite.dir, "idle.yml"),
	}, paths)

	record, err := ReadHostRunRecord(paths[0])
	suite.Require().NoError(err)
	suite.Equal(suite.writer.PlanID(), record.PlanID)
	suite.Equal(CoresRecord{Hoedur: 1, Fuzzware: 3}, record.Cores)
	suite.Equal([]RunRecord{
		{
			Output:      "01-bug-finding",
			Fuzzer:      "hoedur-dict",
			Target:      "CVE-2020-10064",
			RunID:       1,
			CoresPerRun: 1,
			Duration:    "24h",
		},
		{
			Output:      "01-bug-finding",
			Fuzzer:      "fuzzware",
			Target:      "CVE-2020-10064",
			RunID:       2,
			CoresPerRun: 3,
			Duration:    "90m",
		},
	}, record.Runs)

	idle, err := ReadHostRunRecord(paths[1])
	suite.Require().NoError(err)
	suite.Equal(suite.writer.PlanID(), idle.PlanID)
	suite.Empty(idle.Runs)

	// no temporary files are left behind
	entries, err := os.ReadDir(suite.dir)
	suite.Require().NoError(err)
	suite.Len(entries, 2)
}

func (suite *WriterTestSuite) TestRecordKeys() {
	_, err := suite.writer.Write(suite.hosts[:1])
	suite.Require().NoError(err)

	data, err := os.ReadFile(suite.writer.Path("h1"))
	suite.Require().NoError(err)
	for _, key := range []string{
		"plan_id:", "cores:", "hoedur: 1", "fuzzware: 3", "runs:",
		"output: 01-bug-finding", "run_id: 1", "cores_per_run: 3", "duration: 90m",
	} {
		suite.Contains(string(data), key)
	}
}

func (suite *WriterTestSuite) TestCheckStale() {
	// missing output directory
	suite.NoError(suite.writer.CheckStale())

	_, err := suite.writer.Write(suite.hosts)
	suite.Require().NoError(err)
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.dir, "notes.txt"), []byte("x"), 0644))

	err = suite.writer.CheckStale()
	suite.Require().Error(err)
	suite.Equal(ErrStalePriorOutput, errors.Cause(err))
	suite.True(errors.Is(err, ErrStalePriorOutput))

	stale, ok := err.(*StaleOutputError)
	suite.Require().True(ok)
	suite.Equal([]string{
		filepath.Join(suite.dir, "h1.yml"),
		filepath.Join(suite.dir, "idle.yml"),
	}, stale.Files)
	suite.Contains(err.Error(), "h1.yml")

	removed, err := suite.writer.RemoveStale()
	suite.NoError(err)
	suite.Equal(stale.Files, removed)
	suite.NoError(suite.writer.CheckStale())

	// unrelated files are kept
	_, err = os.Stat(filepath.Join(suite.dir, "notes.txt"))
	suite.NoError(err)
}

func (suite *WriterTestSuite) TestPlanIDPerWriter() {
	other := New(suite.dir, metrics.NewMetrics(tally.NoopScope))
	suite.NotEmpty(suite.writer.PlanID())
	suite.NotEqual(suite.writer.PlanID(), other.PlanID())
	suite.Equal(suite.dir, other.Dir())
}

func (suite *WriterTestSuite) TestWriteFailsOnUnwritableDir() {
	file := filepath.Join(suite.T().TempDir(), "file")
	suite.Require().NoError(os.WriteFile(file, nil, 0644))

	w := New(filepath.Join(file, "sub"), metrics.NewMetrics(tally.NoopScope))
	paths, err := w.Write(suite.hosts)
	suite.Error(err)
	suite.Empty(paths)
}

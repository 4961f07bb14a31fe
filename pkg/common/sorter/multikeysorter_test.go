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

package sorter

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type experiment struct {
	name     string
	duration int
	cores    int
}

func byDuration(p, q experiment) bool { return p.duration < q.duration }
func byCores(p, q experiment) bool    { return p.cores < q.cores }

func names(list []experiment) []string {
	var result []string
	for _, e := range list {
		result = append(result, e.name)
	}
	return result
}

type MultiKeySorterTestSuite struct {
	suite.Suite
	list []experiment
}

func TestMultiKeySorter(t *testing.T) {
	suite.Run(t, new(MultiKeySorterTestSuite))
}

func (suite *MultiKeySorterTestSuite) SetupTest() {
	suite.list = []experiment{
		{"a", 3600, 1},
		{"b", 86400, 2},
		{"c", 3600, 4},
		{"d", 86400, 1},
		{"e", 1800, 1},
		{"f", 3600, 1},
	}
}

func (suite *MultiKeySorterTestSuite) TestSingleKeyIsStable() {
	OrderedBy[experiment](byDuration).Sort(suite.list)
	suite.Equal([]string{"e", "a", "c", "f", "b", "d"}, names(suite.list))
}

func (suite *MultiKeySorterTestSuite) TestDescending() {
	OrderedBy(Descending[experiment](byDuration)).Sort(suite.list)
	suite.Equal([]string{"b", "d", "a", "c", "f", "e"}, names(suite.list))
}

func (suite *MultiKeySorterTestSuite) TestSecondKeyBreaksTies() {
	OrderedBy(Descending[experiment](byDuration)).
		ThenBy(Descending[experiment](byCores)).
		Sort(suite.list)
	suite.Equal([]string{"b", "d", "c", "a", "f", "e"}, names(suite.list))
}

func (suite *MultiKeySorterTestSuite) TestThenByDoesNotModifyParent() {
	parent := OrderedBy[experiment](byDuration)
	child := parent.ThenBy(byCores)

	c, f := suite.list[2], suite.list[5]
	suite.False(parent.Less(f, c))
	suite.True(child.Less(f, c))
}

func (suite *MultiKeySorterTestSuite) TestNoKeys() {
	list := []int{3, 1, 2}
	OrderedBy[int]().Sort(list)
	suite.Equal([]int{3, 1, 2}, list)
}

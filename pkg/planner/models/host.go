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

// HostEntry is one machine of the inventory.
type HostEntry struct {
	Hostname string
	Cores    int
}

// CoreAllocation is the fixed split of a host's cores between families.
type CoreAllocation struct {
	Hoedur   int
	Fuzzware int
}

// Get returns the cores allocated to the family.
func (c CoreAllocation) Get(f Family) int {
	if f == Hoedur {
		return c.Hoedur
	}
	return c.Fuzzware
}

// Set updates the cores allocated to the family.
func (c *CoreAllocation) Set(f Family, cores int) {
	if f == Hoedur {
		c.Hoedur = cores
		return
	}
	c.Fuzzware = cores
}

// Total returns the cores allocated to all families.
func (c CoreAllocation) Total() int {
	return c.Hoedur + c.Fuzzware
}

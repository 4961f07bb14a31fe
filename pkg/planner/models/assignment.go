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

// RunAssignment binds a run request to a host.
type RunAssignment struct {
	*RunRequest
	Hostname string
}

// NewAssignment creates the assignment of a request to the host.
func NewAssignment(request *RunRequest, hostname string) *RunAssignment {
	return &RunAssignment{
		RunRequest: request,
		Hostname:   hostname,
	}
}

// HostRunConfig is the plan of one host: its core split and the ordered
// list of runs it executes.
type HostRunConfig struct {
	Host  HostEntry
	Cores CoreAllocation
	Runs  []*RunAssignment
}

// NewHostRunConfig creates an empty run config for the host.
func NewHostRunConfig(host HostEntry, cores CoreAllocation) *HostRunConfig {
	return &HostRunConfig{
		Host:  host,
		Cores: cores,
	}
}

// Assign appends the request to the host's run list.
func (c *HostRunConfig) Assign(request *RunRequest) *RunAssignment {
	a := NewAssignment(request, c.Host.Hostname)
	c.Runs = append(c.Runs, a)
	return a
}

// RunsOf returns the assigned runs of one family, in assignment order.
func (c *HostRunConfig) RunsOf(f Family) []*RunAssignment {
	var result []*RunAssignment
	for _, r := range c.Runs {
		if r.Family == f {
			result = append(result, r)
		}
	}
	return result
}

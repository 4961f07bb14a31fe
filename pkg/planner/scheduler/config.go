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
	"github.com/pkg/errors"
)

// RoundPolicy selects how the duration of a scheduling round is chosen.
type RoundPolicy string

const (
	// RoundPolicyGlobal uses the duration of the longest pending run of any
	// family for every family.
	RoundPolicyGlobal RoundPolicy = "global"
	// RoundPolicyFamily uses the longest pending run of each family.
	RoundPolicyFamily RoundPolicy = "family"
)

// _defaultOverhead is the margin added to the conservative estimate.
const _defaultOverhead = 0.2

// Config configures the run scheduler.
type Config struct {
	// RoundPolicy defaults to RoundPolicyGlobal.
	RoundPolicy RoundPolicy `yaml:"round_policy"`
	// Overhead is the fraction added on top of the conservative runtime
	// estimate. Unset means 0.2, an explicit 0 adds no margin.
	Overhead *float64 `yaml:"overhead"`
}

// OverheadFraction returns the configured overhead or its default.
func (c Config) OverheadFraction() float64 {
	if c.Overhead == nil {
		return _defaultOverhead
	}
	return *c.Overhead
}

// Validate checks the round policy and overhead.
func (c Config) Validate() error {
	switch c.RoundPolicy {
	case "", RoundPolicyGlobal, RoundPolicyFamily:
	default:
		return errors.Errorf("unknown round policy %q", c.RoundPolicy)
	}
	if c.Overhead != nil && *c.Overhead < 0 {
		return errors.Errorf("overhead must not be negative, got %v", *c.Overhead)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.RoundPolicy == "" {
		c.RoundPolicy = RoundPolicyGlobal
	}
	if c.Overhead == nil {
		overhead := _defaultOverhead
		c.Overhead = &overhead
	}
	return c
}

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

package stringset

import (
	"sort"
)

// StringSet is a set of strings. It is not safe for concurrent use.
type StringSet map[string]struct{}

// New creates a set holding the given keys.
func New(keys ...string) StringSet {
	s := make(StringSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add adds key to the set. It returns false if key was present already.
func (s StringSet) Add(key string) bool {
	if s.Contains(key) {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Remove removes key from the set.
func (s StringSet) Remove(key string) {
	delete(s, key)
}

// Contains checks if the set contains key.
func (s StringSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Len returns the size of the set.
func (s StringSet) Len() int {
	return len(s)
}

// Difference returns the keys of s missing from other.
func (s StringSet) Difference(other StringSet) StringSet {
	result := New()
	for k := range s {
		if !other.Contains(k) {
			result.Add(k)
		}
	}
	return result
}

// ToSortedSlice returns the keys in lexical order.
func (s StringSet) ToSortedSlice() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

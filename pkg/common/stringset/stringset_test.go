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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSet(t *testing.T) {
	s := New("b")
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains("a"))

	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.ToSortedSlice())

	s.Remove("b")
	assert.False(t, s.Contains("b"))
	assert.Equal(t, []string{"a"}, s.ToSortedSlice())
}

func TestStringSetDifference(t *testing.T) {
	profiled := New("02-coverage", "01-bugs", "99-unknown", "00-typo")
	defined := New("01-bugs", "02-coverage", "03-mutations")

	assert.Equal(t, []string{"00-typo", "99-unknown"}, profiled.Difference(defined).ToSortedSlice())
	assert.Equal(t, []string{"03-mutations"}, defined.Difference(profiled).ToSortedSlice())
	assert.Equal(t, 0, defined.Difference(defined).Len())
}

func TestStringSetEmpty(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.ToSortedSlice())
}

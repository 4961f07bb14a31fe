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

// Package sorter orders slices by a list of keys.
package sorter

import "sort"

// LessFunc reports whether p orders before q for one sort key.
type LessFunc[T any] func(p, q T) bool

// Descending reverses the order of a key.
func Descending[T any](key LessFunc[T]) LessFunc[T] {
	return func(p, q T) bool {
		return key(q, p)
	}
}

// MultiKeySorter compares items key by key: a later key only decides when
// every earlier key considers the items equal. Items equal under all keys
// keep their input order.
type MultiKeySorter[T any] struct {
	keys []LessFunc[T]
}

// OrderedBy returns a sorter for the keys, most significant first.
func OrderedBy[T any](keys ...LessFunc[T]) *MultiKeySorter[T] {
	return &MultiKeySorter[T]{keys: keys}
}

// ThenBy returns a new sorter with key appended as least significant key.
func (ms *MultiKeySorter[T]) ThenBy(key LessFunc[T]) *MultiKeySorter[T] {
	keys := make([]LessFunc[T], 0, len(ms.keys)+1)
	keys = append(keys, ms.keys...)
	return &MultiKeySorter[T]{keys: append(keys, key)}
}

// Less reports whether p orders before q.
func (ms *MultiKeySorter[T]) Less(p, q T) bool {
	for _, less := range ms.keys {
		switch {
		case less(p, q):
			return true
		case less(q, p):
			return false
		}
	}
	return false
}

// Sort sorts list in place.
func (ms *MultiKeySorter[T]) Sort(list []T) {
	sort.SliceStable(list, func(i, j int) bool {
		return ms.Less(list[i], list[j])
	})
}

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

import (
	"strings"

	"github.com/pkg/errors"
)

// Family is one of the fuzzer lineages that share the core pool.
type Family int

const (
	// Hoedur covers every fuzzer derived from hoedur (hoedur-dict,
	// hoedur-single-stream, ...).
	Hoedur Family = iota
	// Fuzzware is the fuzzware baseline.
	Fuzzware
)

// Families lists all families in the order they are scheduled and reported.
var Families = []Family{Hoedur, Fuzzware}

// ErrUnknownFuzzer is returned for fuzzer ids that belong to no family.
var ErrUnknownFuzzer = errors.New("unknown fuzzer")

const (
	_hoedurMarker = "hoedur"
	_fuzzwareID   = "fuzzware"
)

// ClassifyFuzzer maps a fuzzer id onto its family. Any id containing
// "hoedur" is Hoedur, only the exact id "fuzzware" is Fuzzware.
func ClassifyFuzzer(fuzzer string) (Family, error) {
	switch {
	case strings.Contains(fuzzer, _hoedurMarker):
		return Hoedur, nil
	case fuzzer == _fuzzwareID:
		return Fuzzware, nil
	}
	return 0, errors.Wrapf(ErrUnknownFuzzer, "%q", fuzzer)
}

// String returns the lower case family name used in run configs.
func (f Family) String() string {
	switch f {
	case Hoedur:
		return "hoedur"
	case Fuzzware:
		return "fuzzware"
	}
	return "unknown"
}

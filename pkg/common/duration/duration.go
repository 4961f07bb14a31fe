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

// Package duration parses the human readable durations used by experiment
// profiles ("45s", "30m", "1h", "15d") into whole seconds.
package duration

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidDurationFormat is returned for strings without a known unit
// suffix or with a non-integer amount.
var ErrInvalidDurationFormat = errors.New("invalid duration format")

const (
	_minute = 60
	_hour   = 60 * _minute
	_day    = 24 * _hour
)

var _units = map[byte]int64{
	's': 1,
	'm': _minute,
	'h': _hour,
	'd': _day,
}

// Parse converts a duration string into seconds. The string must end in
// exactly one of s, m, h or d (case-insensitive) and the remainder must be a
// non-negative integer. No normalization happens, "90m" is 5400.
func Parse(s string) (int64, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if len(value) < 2 {
		return 0, errors.Wrapf(ErrInvalidDurationFormat, "%q", s)
	}

	factor, ok := _units[value[len(value)-1]]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidDurationFormat, "%q: unknown unit", s)
	}

	// ParseUint rejects signs and embedded whitespace.
	n, err := strconv.ParseUint(value[:len(value)-1], 10, 63)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidDurationFormat, "%q: not an integer", s)
	}

	seconds := int64(n)
	if factor > 1 && seconds > (1<<63-1)/factor {
		return 0, errors.Wrapf(ErrInvalidDurationFormat, "%q: out of range", s)
	}
	return seconds * factor, nil
}

// MustParse is like Parse but panics on error. Only meant for tests and
// static tables.
func MustParse(s string) int64 {
	seconds, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return seconds
}

// Format renders seconds using the largest unit that divides it evenly, so
// that Parse(Format(x)) == x.
func Format(seconds int64) string {
	switch {
	case seconds != 0 && seconds%_day == 0:
		return strconv.FormatInt(seconds/_day, 10) + "d"
	case seconds != 0 && seconds%_hour == 0:
		return strconv.FormatInt(seconds/_hour, 10) + "h"
	case seconds != 0 && seconds%_minute == 0:
		return strconv.FormatInt(seconds/_minute, 10) + "m"
	default:
		return strconv.FormatInt(seconds, 10) + "s"
	}
}

// Humanize renders a (possibly fractional) number of seconds as a wall-clock
// duration for operator facing reports, e.g. "36h0m0s".
func Humanize(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}

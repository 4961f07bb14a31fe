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

// Package config loads YAML configuration files into tagged structs and
// validates them.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ValidationError lists the fields of a config that failed their
// `validate` tags.
type ValidationError struct {
	errorMap validator.ErrorMap
}

// ErrForField returns the validation error for the given field, nil if the
// field is valid.
func (e ValidationError) ErrForField(name string) error {
	errs, ok := e.errorMap[name]
	if !ok {
		return nil
	}
	return errs
}

// Fields returns the names of the invalid fields in sorted order.
func (e ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.errorMap))
	for f := range e.errorMap {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	for _, f := range e.Fields() {
		fmt.Fprintf(&b, "\n   %s: %v", f, e.errorMap[f])
	}
	return b.String()
}

// Parse decodes configFiles in order into config, so values of later files
// override earlier ones, and validates the merged result. $VAR and ${VAR}
// references in the files are replaced by environment variables before
// decoding.
func Parse(config interface{}, configFiles ...string) error {
	if len(configFiles) == 0 {
		return errors.New("no files to load")
	}
	for _, fname := range configFiles {
		data, err := os.ReadFile(fname)
		if err != nil {
			return err
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
			return errors.Wrapf(err, "failed to parse %s", fname)
		}
	}
	return Validate(config)
}

// Validate checks the `validate` struct tags of config.
func Validate(config interface{}) error {
	err := validator.Validate(config)
	if errorMap, ok := err.(validator.ErrorMap); ok {
		return ValidationError{errorMap: errorMap}
	}
	return err
}

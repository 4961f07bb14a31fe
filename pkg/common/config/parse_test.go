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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type testConfig struct {
	Name   string `yaml:"name" validate:"nonzero"`
	Rounds int    `yaml:"rounds" validate:"min=1"`
	Nested struct {
		Value string `yaml:"value"`
	} `yaml:"nested"`
}

type ParseTestSuite struct {
	suite.Suite
	dir string
}

func TestParse(t *testing.T) {
	suite.Run(t, new(ParseTestSuite))
}

func (suite *ParseTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *ParseTestSuite) writeFile(name, content string) string {
	path := filepath.Join(suite.dir, name)
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0644))
	return path
}

func (suite *ParseTestSuite) TestParseMergesFiles() {
	base := suite.writeFile("base.yaml", "name: base\nrounds: 1\nnested:\n  value: a\n")
	override := suite.writeFile("override.yaml", "rounds: 3\n")

	var cfg testConfig
	suite.NoError(Parse(&cfg, base, override))
	suite.Equal("base", cfg.Name)
	suite.Equal(3, cfg.Rounds)
	suite.Equal("a", cfg.Nested.Value)
}

func (suite *ParseTestSuite) TestParseNoFiles() {
	var cfg testConfig
	suite.EqualError(Parse(&cfg), "no files to load")
}

func (suite *ParseTestSuite) TestParseMissingFile() {
	var cfg testConfig
	err := Parse(&cfg, filepath.Join(suite.dir, "missing.yaml"))
	suite.Error(err)
	suite.True(os.IsNotExist(err))
}

func (suite *ParseTestSuite) TestParseInvalidYAML() {
	path := suite.writeFile("bad.yaml", "name: [\n")
	var cfg testConfig
	err := Parse(&cfg, path)
	suite.Error(err)
	suite.Contains(err.Error(), "failed to parse")
}

func (suite *ParseTestSuite) TestParseValidationFailure() {
	path := suite.writeFile("invalid.yaml", "rounds: 0\n")
	var cfg testConfig
	err := Parse(&cfg, path)
	suite.Error(err)

	verr, ok := err.(ValidationError)
	suite.True(ok)
	suite.Error(verr.ErrForField("Name"))
	suite.Error(verr.ErrForField("Rounds"))
	suite.NoError(verr.ErrForField("Nested"))
	suite.Equal([]string{"Name", "Rounds"}, verr.Fields())
	suite.Contains(err.Error(), "validation failed\n   Name: ")
}

func (suite *ParseTestSuite) TestParseExpandsEnvironment() {
	suite.T().Setenv("PLANNER_TEST_NAME", "from-env")
	path := suite.writeFile("env.yaml", "name: ${PLANNER_TEST_NAME}\nrounds: 2\nnested:\n  value: $PLANNER_TEST_NAME/sub\n")

	var cfg testConfig
	suite.NoError(Parse(&cfg, path))
	suite.Equal("from-env", cfg.Name)
	suite.Equal("from-env/sub", cfg.Nested.Value)
}

func TestValidateNonStruct(t *testing.T) {
	assert.Error(t, Validate(42))
}

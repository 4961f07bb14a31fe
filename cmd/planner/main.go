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

package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/logging"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/upload"
)

const _appLogField = "app"

var (
	version string
	app     = kingpin.New("planner", "Hoedur experiment run planner")

	debug = app.Flag(
		"debug", "enable debug logging").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	jsonLog = app.Flag(
		"json-log", "log in JSON instead of text").
		Default("false").
		Envar("JSON_LOG").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		ExistingFiles()

	baseDir = app.Flag(
		"base-dir",
		"Root of the experiment checkout (set $BASEDIR to override)").
		Envar("BASEDIR").
		String()

	hostsFile = app.Flag(
		"hosts", "Host inventory, one \"<hostname> <cores>\" per line (paths.hosts override)").
		String()

	experimentsFile = app.Flag(
		"experiments", "Experiment definitions (paths.experiments override)").
		String()

	profilesFile = app.Flag(
		"profiles", "Experiment run-time profiles (paths.profiles override)").
		String()

	profile = app.Flag(
		"profile", "Active profile, overrides active_profile.txt (set $PROFILE to override)").
		Envar("PROFILE").
		String()

	outputDir = app.Flag(
		"output", "Directory receiving the host run configs (paths.output override)").
		String()

	uploadConfigs = app.Flag(
		"upload", "Upload the configurations to the respective hosts").
		Default("false").
		Bool()

	force = app.Flag(
		"force", "Replace old host run configs without asking").
		Default("false").
		Bool()

	dryRun = app.Flag(
		"dry-run", "Schedule and print the estimate without writing anything").
		Default("false").
		Bool()
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to load .env file")
	}

	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	var formatter log.Formatter = &log.TextFormatter{FullTimestamp: true}
	if *jsonLog {
		formatter = &log.JSONFormatter{}
	}
	log.SetFormatter(
		&logging.LogFieldFormatter{
			Formatter: formatter,
			Fields: log.Fields{
				_appLogField: app.Name,
			},
		},
	)

	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	log.SetLevel(initialLevel)

	opts := options{
		configFiles: *cfgFiles,
		baseDir:     *baseDir,
		hosts:       *hostsFile,
		experiments: *experimentsFile,
		profiles:    *profilesFile,
		profile:     *profile,
		output:      *outputDir,
		upload:      *uploadConfigs,
		force:       *force,
		dryRun:      *dryRun,
	}

	p := &planner{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		runner: upload.NewExecRunner(),
	}
	os.Exit(p.run(context.Background(), opts))
}

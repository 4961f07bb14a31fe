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
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/duration"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/metrics"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/catalogue"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/config"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/cores"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/inventory"
	planner_metrics "github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/metrics"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/scheduler"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/upload"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/writer"
)

// Exit codes of the planner.
const (
	_exitOK = iota
	_exitConfig
	_exitInsufficientCores
	_exitDeadlock
	_exitStaleOutput
	_exitWrite
	_exitUpload
)

const _metricsRoot = "hoedur-planner"

// options are the command line settings.
type options struct {
	configFiles []string
	baseDir     string
	hosts       string
	experiments string
	profiles    string
	profile     string
	output      string
	upload      bool
	force       bool
	dryRun      bool
}

type planner struct {
	stdin  io.Reader
	stdout io.Writer
	runner upload.CommandRunner
}

func (p *planner) run(ctx context.Context, opts options) int {
	cfg, err := loadConfig(opts)
	if err != nil {
		log.WithError(err).Error("Cannot load planner config")
		return _exitConfig
	}
	log.WithField("config", cfg).Debug("Completed loading planner config")

	rootScope, scopeCloser, err := metrics.InitMetricScope(&cfg.Metrics, _metricsRoot)
	if err != nil {
		log.WithError(err).Error("Cannot initialize metrics")
		return _exitConfig
	}
	defer scopeCloser.Close()
	m := planner_metrics.NewMetrics(rootScope)

	// verify no previous run config is available
	w := writer.New(cfg.Paths.Output, m)
	replaceStale := false
	if err := w.CheckStale(); err != nil {
		if errors.Cause(err) != writer.ErrStalePriorOutput {
			log.WithError(err).Error("Cannot check for old host run configs")
			return _exitWrite
		}
		if opts.dryRun {
			log.WithError(err).Warn("Old host run configs are present")
		} else {
			fmt.Fprintf(p.stdout, "ERROR: %v\n", err)
			fmt.Fprintln(p.stdout, "Please clean old config / experiment files!")

			switch {
			case opts.force:
				replaceStale = true
			case opts.upload && p.confirm("Would you like to re-generate and upload anyways (yes/no)? "):
				replaceStale = true
			default:
				if opts.upload {
					fmt.Fprintln(p.stdout, "Chose not to upload anyways, exiting...")
				}
				return _exitStaleOutput
			}
		}
	}

	inv, err := inventory.Load(cfg.Paths.Hosts)
	if err != nil {
		log.WithError(err).Error("Cannot load host inventory")
		return _exitConfig
	}
	log.WithFields(log.Fields{
		"hosts":       inv.Len(),
		"total_cores": inv.TotalCores(),
		"max_cores":   inv.MaxCores(),
	}).Info("Loaded host inventory")

	cat, err := catalogue.Load(cfg.CatalogueOptions())
	if err != nil {
		log.WithError(err).Error("Cannot load experiment catalogue")
		return _exitConfig
	}
	runs := cat.Runs()
	log.WithFields(log.Fields{
		"profile": cat.Profile(),
		"runs":    len(runs),
	}).Info("Collected runs")

	allocation, demand, err := cores.Allocate(inv.Hosts(), runs)
	if err != nil {
		log.WithError(err).Error("Cannot split cores between fuzzers")
		if errors.Cause(err) == cores.ErrInsufficientCores {
			return _exitInsufficientCores
		}
		return _exitConfig
	}
	reportAllocation(m, allocation, demand)

	s := scheduler.New(cfg.Scheduling, allocation, m)
	plan, err := s.Schedule(runs)
	if err != nil {
		fmt.Fprintf(p.stdout, "ERROR: %v\n", err)
		return _exitDeadlock
	}
	p.printReport(plan, s.Estimate(plan), s.Config().OverheadFraction())

	if opts.dryRun {
		log.Info("Dry run, not writing host run configs")
		return _exitOK
	}

	if replaceStale {
		if _, err := w.RemoveStale(); err != nil {
			log.WithError(err).Error("Cannot remove old host run configs")
			return _exitWrite
		}
	}
	paths, err := w.Write(plan.Hosts)
	if err != nil {
		log.WithError(err).Error("Cannot write host run configs")
		return _exitWrite
	}

	if !opts.upload {
		return _exitOK
	}

	targets := make([]upload.Target, 0, len(paths))
	for i, host := range plan.Hosts {
		targets = append(targets, upload.Target{Hostname: host.Host.Hostname, Path: paths[i]})
	}
	result, err := upload.New(cfg.Upload, p.runner, m).Upload(ctx, targets)
	if err != nil {
		log.WithError(err).Error("Cannot upload host run configs")
		return _exitUpload
	}
	log.WithFields(log.Fields{
		"uploaded":  result.Uploaded,
		"unchecked": result.Skipped,
	}).Info("Uploaded host run configs")
	return _exitOK
}

// loadConfig merges the config files and applies the command line
// overrides. Paths given on the command line are relative to the working
// directory.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.baseDir, opts.configFiles...)
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{opts.hosts, &cfg.Paths.Hosts},
		{opts.experiments, &cfg.Paths.Experiments},
		{opts.profiles, &cfg.Paths.Profiles},
		{opts.output, &cfg.Paths.Output},
	}
	for _, o := range overrides {
		if o.flag == "" {
			continue
		}
		abs, err := filepath.Abs(o.flag)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid path %s", o.flag)
		}
		*o.dst = abs
	}
	if opts.profile != "" {
		cfg.Paths.Profile = opts.profile
	}
	cfg.Resolve()
	return cfg, nil
}

func (p *planner) confirm(question string) bool {
	fmt.Fprintf(p.stdout, "\n%s", question)
	answer, err := bufio.NewReader(p.stdin).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "yes"
}

func reportAllocation(m *planner_metrics.Metrics, allocation *cores.Allocation, demand cores.Demand) {
	for _, f := range models.Families {
		total := 0
		for _, h := range allocation.Hosts {
			total += h.Cores.Get(f)
		}
		fm := m.Family(f)
		fm.Cores.Update(float64(total))
		fm.LeftoverCores.Update(float64(allocation.Leftover.Get(f)))
		fm.DemandSeconds.Update(float64(demand.Get(f).Seconds))
	}
	for _, h := range allocation.Hosts {
		log.WithFields(log.Fields{
			"host":     h.Host.Hostname,
			"hoedur":   h.Cores.Hoedur,
			"fuzzware": h.Cores.Fuzzware,
		}).Info("Assigned host cores")
	}
}

func (p *planner) printReport(plan *scheduler.Plan, est *scheduler.Estimate, overhead float64) {
	for i, host := range plan.Hosts {
		fmt.Fprintf(p.stdout, "\n=== Parallel scheduling on %s\n", host.Host.Hostname)
		for _, f := range models.Families {
			allocated := host.Cores.Get(f)
			if allocated == 0 {
				continue
			}
			runs := host.RunsOf(f)
			experimentCores := 0
			for _, r := range runs {
				experimentCores += r.CoresPerRun
			}
			fmt.Fprintf(p.stdout,
				"%-8s: %d cores. %d experiments (%d experiment cores). Estimated time: %s.\n",
				f, allocated, len(runs), experimentCores,
				duration.Humanize(est.Hosts[i].Seconds[f]))
		}
	}

	fmt.Fprintf(p.stdout, "\nOverall, host %s has the longest estimated time of %s.\n",
		est.CriticalHost, duration.Humanize(est.CriticalSeconds))
	fmt.Fprintf(p.stdout,
		"\nNOTE: the estimate averages the experiment duration per core. "+
			"Depending on the distribution, runs can take up to the longest round (%s) longer.\n",
		duration.Humanize(float64(plan.LongestRoundSeconds)))
	fmt.Fprintf(p.stdout,
		"Including %.0f%% overhead for local post-processing, the fuzzing runs should be "+
			"finished within between %s and %s.\n",
		overhead*100,
		duration.Humanize(est.CriticalSeconds),
		duration.Humanize(est.ConservativeSeconds))
}

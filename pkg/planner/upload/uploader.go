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

package upload

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/concurrency"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/metrics"
)

const _localhost = "localhost"

var (
	// ErrRsyncUnavailable is returned when rsync cannot be executed locally.
	ErrRsyncUnavailable = errors.New("rsync is not available")
	// ErrHostCheckFailed is the cause when a remote host is not reachable or
	// lacks the experiment checkout.
	ErrHostCheckFailed = errors.New("host check failed")
)

// HostCheckError keeps the output of a failed remote check.
type HostCheckError struct {
	Host   string
	Stdout string
	Stderr string
	Err    error
}

func (e *HostCheckError) Error() string {
	return fmt.Sprintf("host %s: %v\nstdout: %s\nstderr: %s",
		e.Host, e.Err, strings.TrimSpace(e.Stdout), strings.TrimSpace(e.Stderr))
}

// Target is a run config file to be pushed to a host.
type Target struct {
	Hostname string
	Path     string
}

// Result summarizes an upload.
type Result struct {
	Checked  int
	Uploaded int
	// Skipped counts hosts whose remote check was skipped.
	Skipped int
}

// Uploader pushes host run configs to the experiment checkout of each host.
type Uploader struct {
	config  Config
	runner  CommandRunner
	metrics *metrics.Metrics
	limiter *rate.Limiter

	checked  *atomic.Int32
	uploaded *atomic.Int32
}

// New creates an uploader running its commands through runner.
func New(cfg Config, runner CommandRunner, m *metrics.Metrics) *Uploader {
	cfg = cfg.withDefaults()
	return &Uploader{
		config:   cfg,
		runner:   runner,
		metrics:  m,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SSHRate), 1),
		checked:  atomic.NewInt32(0),
		uploaded: atomic.NewInt32(0),
	}
}

// Upload checks every remote host first and only starts copying once all
// checks passed. localhost is not checked, its run config is copied like any
// other.
func (u *Uploader) Upload(ctx context.Context, targets []Target) (Result, error) {
	var result Result
	u.checked.Store(0)
	u.uploaded.Store(0)

	if _, _, err := u.runner.Run(ctx, "rsync", "-h"); err != nil {
		return result, errors.Wrap(ErrRsyncUnavailable, err.Error())
	}

	var remote []Target
	for _, t := range targets {
		if t.Hostname == _localhost {
			log.WithField("host", t.Hostname).Info("Skipping check of localhost")
			result.Skipped++
			continue
		}
		remote = append(remote, t)
	}

	_, err := concurrency.MapAll[Target, struct{}](
		ctx,
		concurrency.MapperFunc[Target, struct{}](u.checkHost),
		remote,
		u.config.Concurrency,
	)
	result.Checked = int(u.checked.Load())
	if err != nil {
		return result, errors.Wrap(ErrHostCheckFailed, err.Error())
	}

	_, err = concurrency.Map[Target, struct{}](
		ctx,
		concurrency.MapperFunc[Target, struct{}](u.uploadConfig),
		targets,
		u.config.Concurrency,
	)
	result.Uploaded = int(u.uploaded.Load())
	return result, err
}

func (u *Uploader) checkHost(ctx context.Context, t Target) (struct{}, error) {
	if err := u.limiter.Wait(ctx); err != nil {
		return struct{}{}, err
	}

	log.WithField("host", t.Hostname).Info("Checking host")
	stdout, stderr, err := u.runner.Run(ctx, "ssh", t.Hostname, "ls", u.config.RemoteRoot)
	if err != nil {
		u.metrics.UploadsFail.Inc(1)
		log.WithError(err).
			WithFields(log.Fields{
				"host":   t.Hostname,
				"stdout": string(stdout),
				"stderr": string(stderr),
			}).
			Error("Host check failed")
		return struct{}{}, &HostCheckError{
			Host:   t.Hostname,
			Stdout: string(stdout),
			Stderr: string(stderr),
			Err:    err,
		}
	}
	u.checked.Inc()
	log.WithField("host", t.Hostname).Info("Check passed")
	return struct{}{}, nil
}

func (u *Uploader) uploadConfig(ctx context.Context, t Target) (struct{}, error) {
	dest := fmt.Sprintf("%s:%s/", t.Hostname, u.RemoteConfigDir())
	if _, stderr, err := u.runner.Run(ctx, "rsync", "-ah", t.Path, dest); err != nil {
		u.metrics.UploadsFail.Inc(1)
		return struct{}{}, errors.Wrapf(err, "failed to upload %s to %s: %s",
			t.Path, dest, strings.TrimSpace(string(stderr)))
	}
	u.uploaded.Inc()
	u.metrics.Uploads.Inc(1)
	log.WithFields(log.Fields{
		"host": t.Hostname,
		"path": t.Path,
	}).Info("Uploaded host run config")
	return struct{}{}, nil
}

// RemoteConfigDir is the run config directory on the remote hosts, relative
// to the remote home directory.
func (u *Uploader) RemoteConfigDir() string {
	return path.Join("~", u.config.RemoteRoot, u.config.RemoteConfigDir)
}

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

package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/metrics"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

const _fileExtension = ".yml"

// ErrStalePriorOutput is the cause of a StaleOutputError.
var ErrStalePriorOutput = errors.New("old host run config files are present")

// StaleOutputError lists run config files left over from a previous plan.
type StaleOutputError struct {
	Dir   string
	Files []string
}

func (e *StaleOutputError) Error() string {
	return fmt.Sprintf("%s in %s:\n\t- %s",
		ErrStalePriorOutput, e.Dir, strings.Join(e.Files, "\n\t- "))
}

// Cause returns ErrStalePriorOutput for errors.Cause.
func (e *StaleOutputError) Cause() error {
	return ErrStalePriorOutput
}

// Unwrap returns ErrStalePriorOutput for errors.Is.
func (e *StaleOutputError) Unwrap() error {
	return ErrStalePriorOutput
}

// Writer writes one run config file per host into an output directory.
type Writer struct {
	dir     string
	planID  string
	metrics *metrics.Metrics
}

// New creates a writer for the directory. Every file written by it carries
// the same random plan id.
func New(dir string, m *metrics.Metrics) *Writer {
	return &Writer{
		dir:     dir,
		planID:  uuid.New(),
		metrics: m,
	}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// PlanID returns the id stamped on the written records.
func (w *Writer) PlanID() string {
	return w.planID
}

// Path returns the run config path of the host.
func (w *Writer) Path(hostname string) string {
	return filepath.Join(w.dir, hostname+_fileExtension)
}

// CheckStale returns a StaleOutputError if the output directory already
// holds run config files. A missing directory is not an error.
func (w *Writer) CheckStale() error {
	files, err := w.staleFiles()
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return &StaleOutputError{Dir: w.dir, Files: files}
	}
	return nil
}

// RemoveStale deletes run config files of a previous plan and returns their
// paths.
func (w *Writer) RemoveStale() ([]string, error) {
	files, err := w.staleFiles()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return nil, errors.Wrapf(err, "failed to remove %s", f)
		}
		log.WithField("path", f).Info("Removed old host run config")
	}
	return files, nil
}

func (w *Writer) staleFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(w.dir, "*"+_fileExtension))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", w.dir)
	}
	sort.Strings(files)
	return files, nil
}

// Write renders every host config and writes the files. All records are
// encoded before the first file is touched, and each file is replaced
// atomically through a temporary file in the same directory.
func (w *Writer) Write(hosts []*models.HostRunConfig) ([]string, error) {
	encoded := make(map[string][]byte, len(hosts))
	for _, host := range hosts {
		data, err := yaml.Marshal(NewHostRunRecord(w.planID, host))
		if err != nil {
			w.metrics.PlansWrittenFail.Inc(1)
			return nil, errors.Wrapf(err, "failed to encode run config of %s", host.Host.Hostname)
		}
		encoded[host.Host.Hostname] = data
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.metrics.PlansWrittenFail.Inc(1)
		return nil, errors.Wrapf(err, "failed to create %s", w.dir)
	}

	paths := make([]string, 0, len(hosts))
	for _, host := range hosts {
		path := w.Path(host.Host.Hostname)
		if err := writeFile(path, encoded[host.Host.Hostname]); err != nil {
			w.metrics.PlansWrittenFail.Inc(1)
			return paths, err
		}
		w.metrics.PlansWritten.Inc(1)
		paths = append(paths, path)

		log.WithFields(log.Fields{
			"host":    host.Host.Hostname,
			"path":    path,
			"runs":    len(host.Runs),
			"plan_id": w.planID,
		}).Info("Wrote host run config")
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

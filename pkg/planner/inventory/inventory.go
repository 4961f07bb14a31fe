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

// Package inventory loads the registry of available hosts and their core
// counts.
package inventory

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/common/stringset"
	"github.com/fuzzware-fuzzer/hoedur-experiments/pkg/planner/models"
)

// ErrInvalidInventory is the cause of malformed inventory lines.
var ErrInvalidInventory = errors.New("invalid host inventory")

// Inventory is the ordered list of available hosts.
type Inventory struct {
	hosts []models.HostEntry
}

// New creates an inventory from host entries, keeping their order.
func New(hosts ...models.HostEntry) *Inventory {
	return &Inventory{hosts: append([]models.HostEntry(nil), hosts...)}
}

// Load reads the inventory file.
func Load(path string) (*Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open host inventory")
	}
	defer f.Close()

	inv, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return inv, nil
}

// Parse reads lines of "<hostname> <cores>". Blank lines and lines starting
// with '#' are ignored. Hostnames name the host's run config file, so they
// must not contain path separators or be "." or "..". The first entry of a
// duplicated hostname wins.
func Parse(r io.Reader) (*Inventory, error) {
	inv := &Inventory{}
	seen := stringset.New()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Wrapf(ErrInvalidInventory,
				"line %d: expected \"<hostname> <cores>\", got %q", lineNo, line)
		}
		hostname := fields[0]
		if !validHostname(hostname) {
			return nil, errors.Wrapf(ErrInvalidInventory,
				"line %d: invalid hostname %q", lineNo, hostname)
		}
		cores, err := strconv.Atoi(fields[1])
		if err != nil || cores <= 0 {
			return nil, errors.Wrapf(ErrInvalidInventory,
				"line %d: invalid core count %q for host %s", lineNo, fields[1], hostname)
		}

		if !seen.Add(hostname) {
			log.WithFields(log.Fields{
				"host": hostname,
				"line": lineNo,
			}).Warn("Hostname specified multiple times, skipping")
			continue
		}

		log.WithFields(log.Fields{
			"host":  hostname,
			"cores": cores,
		}).Info("Found available host")
		inv.hosts = append(inv.hosts, models.HostEntry{
			Hostname: hostname,
			Cores:    cores,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read host inventory")
	}
	return inv, nil
}

// Hosts returns the hosts in registry order.
func (i *Inventory) Hosts() []models.HostEntry {
	return append([]models.HostEntry(nil), i.hosts...)
}

// Len returns the number of hosts.
func (i *Inventory) Len() int {
	return len(i.hosts)
}

// TotalCores returns the sum of all host cores.
func (i *Inventory) TotalCores() int {
	total := 0
	for _, h := range i.hosts {
		total += h.Cores
	}
	return total
}

// MaxCores returns the core count of the largest host.
func (i *Inventory) MaxCores() int {
	largest := 0
	for _, h := range i.hosts {
		if h.Cores > largest {
			largest = h.Cores
		}
	}
	return largest
}

func validHostname(hostname string) bool {
	if hostname == "." || hostname == ".." {
		return false
	}
	return !strings.ContainsAny(hostname, `/\`)
}

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

package concurrency

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Mapper maps inputs into outputs.
type Mapper[I, O any] interface {
	Map(ctx context.Context, input I) (output O, err error)
}

// MapperFunc is an adaptor to allow the use of ordinary functions as Mappers.
type MapperFunc[I, O any] func(ctx context.Context, input I) (output O, err error)

// Map calls f.
func (f MapperFunc[I, O]) Map(ctx context.Context, input I) (O, error) {
	return f(ctx, input)
}

type mapResult[O any] struct {
	index  int
	output O
	err    error
}

// Map applies m.Map to inputs using numWorkers goroutines. Collects the
// outputs in input order or stops early if error is encountered.
func Map[I, O any](
	ctx context.Context,
	m Mapper[I, O],
	inputs []I,
	numWorkers int,
) ([]O, error) {
	return run(ctx, m, inputs, numWorkers, true)
}

// MapAll is like Map but does not stop on errors. Every input is mapped and
// the errors of all failed inputs are returned as one multierror together
// with the outputs, which hold the zero value for failed inputs.
func MapAll[I, O any](
	ctx context.Context,
	m Mapper[I, O],
	inputs []I,
	numWorkers int,
) ([]O, error) {
	return run(ctx, m, inputs, numWorkers, false)
}

func run[I, O any](
	ctx context.Context,
	m Mapper[I, O],
	inputs []I,
	numWorkers int,
	stopOnError bool,
) ([]O, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}

	inputc := make(chan int)
	resultc := make(chan *mapResult[O])

	var wg sync.WaitGroup
	feederDone := make(chan struct{})

	// Ensure all channel sends/recvs have a release valve if we encounter
	// an early error.
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		// Make sure all workers and the feeder have exited before return
		wg.Wait()
		<-feederDone
	}()

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for {
				select {
				case i, ok := <-inputc:
					if !ok {
						return
					}
					o, err := m.Map(ctx, inputs[i])
					select {
					case resultc <- &mapResult[O]{index: i, output: o, err: err}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(feederDone)
		for i := range inputs {
			select {
			case inputc <- i:
			case <-ctx.Done():
				return
			}
		}
		close(inputc)  // Signal to workers there are no more inputs.
		wg.Wait()      // Wait for workers to finish in-progress work.
		close(resultc) // Signal to consumer that work is finished.
	}()

	outputs := make([]O, len(inputs))
	var errs *multierror.Error
	for {
		select {
		case r, ok := <-resultc:
			if !ok {
				return outputs, errs.ErrorOrNil()
			}
			if r.err != nil {
				if stopOnError {
					return nil, r.err
				}
				errs = multierror.Append(errs, r.err)
				continue
			}
			outputs[r.index] = r.output
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

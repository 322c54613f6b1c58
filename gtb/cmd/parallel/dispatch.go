// Copyright © 2022-2025 The GenoToolBox Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package parallel

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrNoUnits = errors.New("parallel: no work units to dispatch")
var ErrBadConcurrency = errors.New("parallel: concurrency must be >= 1")

// A Dispatcher executes WorkUnits in sequential batches of at most
// Concurrency concurrent subprocesses. Batches are a hard barrier: batch
// k+1 never starts before every unit of batch k has reached a terminal
// state, so one slow unit delays the next batch even when other slots are
// free. There is no timeout, no cancellation and no retry; a hung external
// process hangs the run.
type Dispatcher struct {
	// Concurrency is the maximum number of concurrently running
	// subprocesses, i.e. the batch size.
	Concurrency int

	// UnitDone, if set, is called once per unit when it reaches a
	// terminal state. Calls are serialized but not ordered across a
	// batch.
	UnitDone func(*UnitResult)
}

// A RunResult collects the outcome of one Dispatcher.Run call.
type RunResult struct {
	// Results holds one terminal result per unit, in unit order
	// (not completion order).
	Results []*UnitResult

	Units   int
	Batches int
	Failed  int
	Elapsed time.Duration
}

// FailedSlots returns the slots of all failed units, in unit order.
func (r *RunResult) FailedSlots() []string {
	if r.Failed == 0 {
		return nil
	}
	slots := make([]string, 0, r.Failed)
	for _, u := range r.Results {
		if !u.Succeeded() {
			slots = append(slots, u.Unit.Slot)
		}
	}
	return slots
}

// Run executes all units. A unit failure (non-zero exit, or the subprocess
// failing to start) is recorded in its UnitResult and never aborts the
// batch or the run; the only errors returned are configuration errors,
// raised before any subprocess is launched.
func (d *Dispatcher) Run(units []*WorkUnit) (*RunResult, error) {
	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	if d.Concurrency < 1 {
		return nil, ErrBadConcurrency
	}

	timeStart := time.Now()

	batches := Batches(units, d.Concurrency)
	results := make([]*UnitResult, len(units))

	// collector serializes result recording and UnitDone callbacks
	ch := make(chan *UnitResult, d.Concurrency)
	done := make(chan int)
	go func() {
		for r := range ch {
			results[r.Unit.Index-1] = r
			if d.UnitDone != nil {
				d.UnitDone(r)
			}
		}
		done <- 1
	}()

	var failed int
	var wg sync.WaitGroup
	for b, batch := range batches {
		for _, unit := range batch {
			wg.Add(1)
			go func(unit *WorkUnit, batch int) {
				defer wg.Done()
				ch <- execUnit(unit, batch)
			}(unit, b+1)
		}
		// barrier: all units of this batch are terminal before the
		// next batch starts
		wg.Wait()
	}

	close(ch)
	<-done

	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}

	return &RunResult{
		Results: results,
		Units:   len(units),
		Batches: len(batches),
		Failed:  failed,
		Elapsed: time.Since(timeStart),
	}, nil
}

// execUnit runs one unit to its terminal state, capturing stderr for the
// failure diagnostic.
func execUnit(unit *WorkUnit, batch int) *UnitResult {
	r := &UnitResult{Unit: unit, Batch: batch, Started: time.Now()}

	command := exec.Command(unit.Program, unit.Args...)
	command.Dir = unit.Dir

	stderr := new(bytes.Buffer)
	command.Stderr = stderr

	var w *os.File
	var bw *bufio.Writer
	if unit.CaptureStdout {
		var err error
		w, err = os.Create(unit.Output)
		if err != nil {
			r.Finished = time.Now()
			r.Err = errors.Wrapf(err, "creating output of %s", unit)
			return r
		}
		bw = bufio.NewWriter(w)
		command.Stdout = bw
	}

	err := command.Run()

	if bw != nil {
		if err2 := bw.Flush(); err == nil {
			err = err2
		}
		if err2 := w.Close(); err == nil {
			err = err2
		}
	}

	r.Finished = time.Now()
	if err != nil {
		r.Err = errors.Wrapf(err, "running %s", unit)
		r.Diagnostic = strings.TrimSpace(stderr.String())
	}
	return r
}

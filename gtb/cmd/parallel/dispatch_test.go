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
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func shellUnit(index int, script string) *WorkUnit {
	return &WorkUnit{
		Index:   index,
		Slot:    fmt.Sprintf("slot%d", index),
		Program: "sh",
		Args:    []string{"-c", script},
	}
}

func TestDispatcherConfigErrors(t *testing.T) {
	d := &Dispatcher{Concurrency: 2}
	if _, err := d.Run(nil); err != ErrNoUnits {
		t.Errorf("expected ErrNoUnits, got %v", err)
	}

	d = &Dispatcher{Concurrency: 0}
	if _, err := d.Run(makeUnits(3)); err != ErrBadConcurrency {
		t.Errorf("expected ErrBadConcurrency, got %v", err)
	}
}

func TestDispatcherRun(t *testing.T) {
	dir := t.TempDir()

	units := make([]*WorkUnit, 0, 5)
	for i := 1; i <= 5; i++ {
		u := shellUnit(i, fmt.Sprintf("echo %d", i))
		u.Output = filepath.Join(dir, fmt.Sprintf("out_%d.txt", i))
		u.CaptureStdout = true
		units = append(units, u)
	}

	d := &Dispatcher{Concurrency: 2}
	res, err := d.Run(units)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if res.Units != 5 || res.Batches != 3 || res.Failed != 0 {
		t.Errorf("got units=%d batches=%d failed=%d, expected 5/3/0",
			res.Units, res.Batches, res.Failed)
	}

	// every unit ran exactly once and wrote its own output
	for i, r := range res.Results {
		if r == nil {
			t.Fatalf("missing result for unit %d", i+1)
		}
		if r.Unit.Index != i+1 {
			t.Errorf("result %d holds unit %d, results not in unit order", i, r.Unit.Index)
		}
		if !r.Succeeded() {
			t.Errorf("unit %d failed: %v", r.Unit.Index, r.Err)
		}
		data, err := ioutil.ReadFile(r.Unit.Output)
		if err != nil {
			t.Fatalf("reading output of unit %d: %v", r.Unit.Index, err)
		}
		if strings.TrimSpace(string(data)) != fmt.Sprintf("%d", i+1) {
			t.Errorf("unit %d output = %q", r.Unit.Index, data)
		}
	}
}

func TestDispatcherFailureIsolation(t *testing.T) {
	units := []*WorkUnit{
		shellUnit(1, "true"),
		shellUnit(2, "echo boom >&2; exit 3"),
		shellUnit(3, "true"),
		shellUnit(4, "true"),
	}

	var doneCalls int
	d := &Dispatcher{
		Concurrency: 2,
		UnitDone:    func(*UnitResult) { doneCalls++ },
	}
	res, err := d.Run(units)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// all units are attempted; exactly one is flagged as failed
	if res.Units != 4 {
		t.Errorf("executed %d units, expected 4", res.Units)
	}
	if res.Failed != 1 {
		t.Errorf("failed=%d, expected 1", res.Failed)
	}
	if doneCalls != 4 {
		t.Errorf("UnitDone called %d times, expected 4", doneCalls)
	}

	r := res.Results[1]
	if r.Succeeded() {
		t.Fatal("unit 2 should have failed")
	}
	if !strings.Contains(r.Diagnostic, "boom") {
		t.Errorf("diagnostic %q does not contain captured stderr", r.Diagnostic)
	}

	slots := res.FailedSlots()
	if len(slots) != 1 || slots[0] != "slot2" {
		t.Errorf("failed slots = %v, expected [slot2]", slots)
	}

	for _, i := range []int{0, 2, 3} {
		if !res.Results[i].Succeeded() {
			t.Errorf("unit %d should have succeeded: %v", i+1, res.Results[i].Err)
		}
	}
}

func TestDispatcherStartFailure(t *testing.T) {
	units := []*WorkUnit{
		{Index: 1, Slot: "slot1", Program: "/no/such/binary-for-sure"},
		shellUnit(2, "true"),
	}

	d := &Dispatcher{Concurrency: 2}
	res, err := d.Run(units)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("failed=%d, expected 1", res.Failed)
	}
	if res.Results[0].Succeeded() {
		t.Error("unit with missing program should be flagged as failed")
	}
	if !res.Results[1].Succeeded() {
		t.Errorf("unit 2 should have succeeded: %v", res.Results[1].Err)
	}
}

func TestDispatcherBatchBarrier(t *testing.T) {
	units := make([]*WorkUnit, 0, 6)
	for i := 1; i <= 6; i++ {
		units = append(units, shellUnit(i, "sleep 0.01"))
	}

	d := &Dispatcher{Concurrency: 3}
	res, err := d.Run(units)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Batches != 2 {
		t.Fatalf("batches=%d, expected 2", res.Batches)
	}

	// no unit of batch k+1 may start before the last unit of batch k
	// finishes
	lastFinish := res.Results[0].Finished
	for _, r := range res.Results[:3] {
		if r.Batch != 1 {
			t.Errorf("unit %d in batch %d, expected 1", r.Unit.Index, r.Batch)
		}
		if r.Finished.After(lastFinish) {
			lastFinish = r.Finished
		}
	}
	for _, r := range res.Results[3:] {
		if r.Batch != 2 {
			t.Errorf("unit %d in batch %d, expected 2", r.Unit.Index, r.Batch)
		}
		if r.Started.Before(lastFinish) {
			t.Errorf("unit %d started at %v, before batch 1 joined at %v",
				r.Unit.Index, r.Started, lastFinish)
		}
	}
}

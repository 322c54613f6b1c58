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

package cmd

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestRunInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, runInfoFile)

	info := NewRunInfo()
	info.Units = 12
	info.Batches = 3
	info.Failed = 1
	info.FailedSlots = []string{"Chr5_0_1000000"}
	info.Output = "calls.vcf"
	info.Checksum = "0123456789abcdef"
	info.Elapsed = "1m2s"
	info.SetStage(StageInfo{Name: "read-stats", Status: StageStatusDone, Units: 2, Elapsed: "3s"})

	if err := info.WriteTo(file); err != nil {
		t.Fatal(err)
	}

	loaded, err := RunInfoFromFile(file)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Version != RunInfoVersion {
		t.Errorf("version = %d", loaded.Version)
	}
	if loaded.GtbVersion != VERSION {
		t.Errorf("gtb version = %q", loaded.GtbVersion)
	}
	if loaded.Units != 12 || loaded.Batches != 3 || loaded.Failed != 1 {
		t.Errorf("tally = %d/%d/%d", loaded.Units, loaded.Batches, loaded.Failed)
	}
	if len(loaded.FailedSlots) != 1 || loaded.FailedSlots[0] != "Chr5_0_1000000" {
		t.Errorf("failed slots = %v", loaded.FailedSlots)
	}
	if loaded.Output != "calls.vcf" || loaded.Checksum != "0123456789abcdef" {
		t.Errorf("output = %q, checksum = %q", loaded.Output, loaded.Checksum)
	}

	stage := loaded.Stage("read-stats")
	if stage == nil {
		t.Fatal("read-stats stage not found")
	}
	if stage.Status != StageStatusDone || stage.Units != 2 {
		t.Errorf("stage = %+v", *stage)
	}
	if loaded.Stage("no-such-stage") != nil {
		t.Error("unknown stage should be nil")
	}
}

func TestRunInfoVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, runInfoFile)

	info := NewRunInfo()
	info.Version = RunInfoVersion + 1
	if err := info.WriteTo(file); err != nil {
		t.Fatal(err)
	}

	if _, err := RunInfoFromFile(file); err != ErrRunInfoVersionMismatch {
		t.Errorf("expected ErrRunInfoVersionMismatch, got %v", err)
	}
}

func TestRunInfoMissingFile(t *testing.T) {
	if _, err := RunInfoFromFile(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected an error for a missing manifest")
	}
}

func TestSetStageReplaces(t *testing.T) {
	info := NewRunInfo()
	info.SetStage(StageInfo{Name: "a", Status: StageStatusFailed})
	info.SetStage(StageInfo{Name: "b", Status: StageStatusDone})
	info.SetStage(StageInfo{Name: "a", Status: StageStatusDone, Units: 5})

	if len(info.Stages) != 2 {
		t.Fatalf("%d stages, expected 2", len(info.Stages))
	}
	if info.Stages[0].Name != "a" || info.Stages[1].Name != "b" {
		t.Errorf("stage order = %s, %s", info.Stages[0].Name, info.Stages[1].Name)
	}
	if info.Stages[0].Status != StageStatusDone || info.Stages[0].Units != 5 {
		t.Errorf("stage a = %+v", info.Stages[0])
	}
}

func TestFileXXH3(t *testing.T) {
	dir := t.TempDir()
	file1 := filepath.Join(dir, "a.txt")
	file2 := filepath.Join(dir, "b.txt")
	if err := ioutil.WriteFile(file1, []byte("##fileformat=VCFv4.2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(file2, []byte("##fileformat=VCFv4.3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sum1, err := fileXXH3(file1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum1) != 16 {
		t.Errorf("checksum %q is not 16 hex digits", sum1)
	}

	sum1again, err := fileXXH3(file1)
	if err != nil {
		t.Fatal(err)
	}
	if sum1 != sum1again {
		t.Errorf("checksum not deterministic: %s vs %s", sum1, sum1again)
	}

	sum2, err := fileXXH3(file2)
	if err != nil {
		t.Fatal(err)
	}
	if sum1 == sum2 {
		t.Error("different files share a checksum")
	}

	if _, err = fileXXH3(filepath.Join(dir, "nope.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

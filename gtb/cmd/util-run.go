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
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v2"
)

// runInfoFile is the name of the run manifest written into the output
// directory of the pipeline commands.
const runInfoFile = "_run.yml"

var ErrRunInfoVersionMismatch = errors.New("gtb: run manifest version mismatch")

const RunInfoVersion uint8 = 1

const (
	StageStatusDone    = "done"
	StageStatusFailed  = "failed"
	StageStatusSkipped = "skipped"
)

// StageInfo records one pipeline stage in the run manifest.
type StageInfo struct {
	Name    string `yaml:"name"`
	Status  string `yaml:"status"`
	Units   int    `yaml:"units"`
	Failed  int    `yaml:"failed"`
	Elapsed string `yaml:"elapsed"`
}

// RunInfo is the manifest of one pipeline run, written as _run.yml into
// the output directory. It records what was executed and what came out,
// so a run can be audited or resumed without re-parsing logs.
type RunInfo struct {
	Version    uint8  `yaml:"version"`
	GtbVersion string `yaml:"gtbVersion"`
	Command    string `yaml:"command"`
	StartedAt  string `yaml:"startedAt"`
	Elapsed    string `yaml:"elapsed"`

	Units       int      `yaml:"units"`
	Batches     int      `yaml:"batches"`
	Failed      int      `yaml:"failed"`
	FailedSlots []string `yaml:"failedSlots,omitempty"`

	Output   string `yaml:"output,omitempty"`
	Checksum string `yaml:"checksum,omitempty"`

	Stages []StageInfo `yaml:"stages,omitempty"`
}

func NewRunInfo() RunInfo {
	return RunInfo{
		Version:    RunInfoVersion,
		GtbVersion: VERSION,
		Command:    strings.Join(os.Args, " "),
		StartedAt:  time.Now().Format(time.RFC3339),
	}
}

func RunInfoFromFile(file string) (RunInfo, error) {
	info := RunInfo{}

	r, err := os.Open(file)
	if err != nil {
		return info, fmt.Errorf("fail to read run manifest: %s", file)
	}

	data, err := ioutil.ReadAll(r)
	r.Close()
	if err != nil {
		return info, fmt.Errorf("fail to read run manifest: %s", file)
	}

	err = yaml.Unmarshal(data, &info)
	if err != nil {
		return info, fmt.Errorf("fail to unmarshal run manifest: %s", file)
	}

	if info.Version != RunInfoVersion {
		return info, ErrRunInfoVersionMismatch
	}
	return info, nil
}

func (i RunInfo) WriteTo(file string) error {
	data, err := yaml.Marshal(i)
	if err != nil {
		return fmt.Errorf("fail to marshal run manifest")
	}

	w, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("fail to write run manifest: %s", file)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("fail to write run manifest: %s", file)
	}

	w.Close()
	return nil
}

// Stage returns the recorded stage with the given name, nil if absent.
func (i *RunInfo) Stage(name string) *StageInfo {
	for s := range i.Stages {
		if i.Stages[s].Name == name {
			return &i.Stages[s]
		}
	}
	return nil
}

// SetStage records or replaces a stage entry, keeping stage order.
func (i *RunInfo) SetStage(stage StageInfo) {
	if s := i.Stage(stage.Name); s != nil {
		*s = stage
		return
	}
	i.Stages = append(i.Stages, stage)
}

// fileXXH3 returns the XXH3 checksum of a file as a 16-digit hex string,
// recorded in the manifest for the merged output.
func fileXXH3(file string) (string, error) {
	r, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer r.Close()

	h := xxh3.New()
	if _, err = io.Copy(h, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

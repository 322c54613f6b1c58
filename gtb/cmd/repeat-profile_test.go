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
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFastqStats(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "reads_1.stats.txt")

	content := "reads\t25000\n" +
		"len\t100\n" +
		"len mean\t99.8750\n" +
		"len stdev\t1.2205\n" +
		"len min\t35\n" +
		"phred\t33\n" +
		"total bases\t2496875\n"
	if err := ioutil.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	nReads, meanLen, err := parseFastqStats(file)
	if err != nil {
		t.Fatal(err)
	}
	if nReads != 25000 {
		t.Errorf("reads = %d, expected 25000", nReads)
	}
	if meanLen != 99.875 {
		t.Errorf("mean length = %f, expected 99.875", meanLen)
	}
}

func TestParseFastqStatsFixedLength(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "reads_2.stats.txt")

	// fixed-length runs report "len" only
	content := "reads\t1000\nlen\t150\nphred\t33\n"
	if err := ioutil.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	nReads, meanLen, err := parseFastqStats(file)
	if err != nil {
		t.Fatal(err)
	}
	if nReads != 1000 || meanLen != 150 {
		t.Errorf("got (%d, %f), expected (1000, 150)", nReads, meanLen)
	}
}

func TestParseFastqStatsIncomplete(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "empty.stats.txt")
	if err := ioutil.WriteFile(file, []byte("phred\t33\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := parseFastqStats(file); err == nil {
		t.Error("expected an error for output without reads/length fields")
	}
}

func TestCountGenomeSize(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "genome.fa")
	if err := ioutil.WriteFile(file, []byte(">chr1\nACGTACGTAC\n>chr2\nACGT\n"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := countGenomeSize(file)
	if err != nil {
		t.Fatal(err)
	}
	if n != 14 {
		t.Errorf("genome size = %d, expected 14", n)
	}
}

func TestContigStats(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "contigs.fa")
	content := ">r0\nACGTACGTACGTACGTACGT\n>r1\nACGTACGT\n>r2\nACGTACGTACGT\n"
	if err := ioutil.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	n, totalBp, minLen, maxLen, err := contigStats(file)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("contigs = %d, expected 3", n)
	}
	if totalBp != 40 {
		t.Errorf("bases = %d, expected 40", totalBp)
	}
	if minLen != 8 || maxLen != 20 {
		t.Errorf("length range = [%d, %d], expected [8, 20]", minLen, maxLen)
	}
}

func TestRepdenovoConfigTemplate(t *testing.T) {
	cfg := repdenovoConfig{
		MinRepeatFreq:   10,
		KMin:            30,
		KMax:            50,
		KInc:            10,
		ReadLength:      100,
		ReadDepth:       20,
		GenomeLength:    125000000,
		MinContigLength: 50,
		Threads:         8,
		BwaPath:         "bwa",
		SamtoolsPath:    "samtools",
		JellyfishPath:   "GLOBAL",
		VelvetPath:      "GLOBAL",
		OutputFolder:    "out/repdenovo",
	}

	var buf bytes.Buffer
	if err := repdenovoConfigTmpl.Execute(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	rendered := buf.String()

	for _, line := range []string{
		"MIN_REPEAT_FREQ 10",
		"K_MIN 30",
		"K_MAX 50",
		"K_INC 10",
		"K_DFT 30",
		"READ_LENGTH 100",
		"READ_DEPTH 20",
		"THREAD_NUM 8",
		"GENOME_LENGTH 125000000",
		"MIN_CONTIG_LENGTH 50",
		"BWA_PATH bwa",
		"SAMTOOLS_PATH samtools",
		"JELLYFISH_PATH GLOBAL",
		"VELVET_PATH GLOBAL",
		"OUTPUT_FOLDER out/repdenovo",
		"VERBOSE 1",
	} {
		if !strings.Contains(rendered, line+"\n") {
			t.Errorf("rendered config misses %q", line)
		}
	}
}

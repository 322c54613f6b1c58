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
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"
)

func writeShard(t *testing.T, dir, name, content string) string {
	t.Helper()
	file := filepath.Join(dir, name)
	if err := ioutil.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestMergeHeaderDedup(t *testing.T) {
	dir := t.TempDir()
	f1 := writeShard(t, dir, "a.vcf", "##fileformat=VCFv4.2\n#CHROM\tPOS\nchr1\t1\nchr1\t2\nchr1\t3\n")
	f2 := writeShard(t, dir, "b.vcf", "##fileformat=VCFv4.2\n#CHROM\tPOS\nchr2\t1\nchr2\t2\n")

	var buf bytes.Buffer
	m := &Merger{Marker: '#'}
	stats, err := m.Merge(&buf, []string{f1, f2})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	expected := "##fileformat=VCFv4.2\n#CHROM\tPOS\nchr1\t1\nchr1\t2\nchr1\t3\nchr2\t1\nchr2\t2\n"
	if buf.String() != expected {
		t.Errorf("merged output:\n%q\nexpected:\n%q", buf.String(), expected)
	}

	if stats.Header != 2 {
		t.Errorf("header lines = %d, expected 2", stats.Header)
	}
	if stats.Total() != 7 {
		t.Errorf("total lines = %d, expected 7", stats.Total())
	}
	if stats.Lines[0] != 5 || stats.Lines[1] != 2 {
		t.Errorf("per-file lines = %v, expected [5 2]", stats.Lines)
	}
}

func TestMergePreservesOrdinalOrder(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeShard(t, dir, "u1", "#h\n1\n"),
		writeShard(t, dir, "u2", "#h\n2\n"),
		writeShard(t, dir, "u3", "#h\n3\n"),
	}

	var buf bytes.Buffer
	m := &Merger{Marker: '#'}
	if _, err := m.Merge(&buf, files); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "#h\n1\n2\n3\n" {
		t.Errorf("merged output %q not in ordinal order", buf.String())
	}
}

func TestMergeRestoresFinalNewline(t *testing.T) {
	dir := t.TempDir()
	f1 := writeShard(t, dir, "a", "one")
	f2 := writeShard(t, dir, "b", "two\n")

	var buf bytes.Buffer
	m := &Merger{Marker: '#'}
	if _, err := m.Merge(&buf, []string{f1, f2}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "one\ntwo\n" {
		t.Errorf("merged output = %q, lines joined across files", buf.String())
	}
}

func TestMergeMissingFileAborts(t *testing.T) {
	dir := t.TempDir()
	f1 := writeShard(t, dir, "a", "#h\n1\n")
	missing := filepath.Join(dir, "does-not-exist")

	var buf bytes.Buffer
	m := &Merger{Marker: '#'}
	if _, err := m.Merge(&buf, []string{f1, missing}); err == nil {
		t.Fatal("expected an error for a missing expected output file")
	}
}

func TestMergeSkipMissing(t *testing.T) {
	dir := t.TempDir()
	f1 := writeShard(t, dir, "a", "#h\n1\n")
	missing := filepath.Join(dir, "does-not-exist")
	f3 := writeShard(t, dir, "c", "#h\n3\n")

	var buf bytes.Buffer
	m := &Merger{Marker: '#', SkipMissing: true}
	stats, err := m.Merge(&buf, []string{f1, missing, f3})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if buf.String() != "#h\n1\n3\n" {
		t.Errorf("merged output = %q", buf.String())
	}
	if len(stats.Skipped) != 1 || stats.Skipped[0] != missing {
		t.Errorf("skipped = %v, expected [%s]", stats.Skipped, missing)
	}
	if stats.Lines[1] != 0 {
		t.Errorf("skipped file counted %d lines", stats.Lines[1])
	}
}

func TestMergeFirstFileMissingKeepsLaterHeader(t *testing.T) {
	// when the first expected file is skipped, the first readable file
	// supplies the header block
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")
	f2 := writeShard(t, dir, "b", "#h\n2\n")
	f3 := writeShard(t, dir, "c", "#h\n3\n")

	var buf bytes.Buffer
	m := &Merger{Marker: '#', SkipMissing: true}
	if _, err := m.Merge(&buf, []string{missing, f2, f3}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "#h\n2\n3\n" {
		t.Errorf("merged output = %q", buf.String())
	}
}

func TestMergeEmptyShard(t *testing.T) {
	dir := t.TempDir()
	f1 := writeShard(t, dir, "a", "#h\n1\n")
	f2 := writeShard(t, dir, "b", "")
	f3 := writeShard(t, dir, "c", "#h\n3\n")

	var buf bytes.Buffer
	m := &Merger{Marker: '#'}
	stats, err := m.Merge(&buf, []string{f1, f2, f3})
	if err != nil {
		t.Fatalf("an empty shard must merge as zero lines: %v", err)
	}
	if buf.String() != "#h\n1\n3\n" {
		t.Errorf("merged output = %q", buf.String())
	}
	if stats.Lines[1] != 0 {
		t.Errorf("empty file counted %d lines", stats.Lines[1])
	}
	if len(stats.Skipped) != 0 {
		t.Errorf("empty file recorded as skipped: %v", stats.Skipped)
	}
}

func TestMergeWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	f1 := writeShard(t, dir, "a", "#keep\n1\n")
	f2 := writeShard(t, dir, "b", "#keep\n2\n")

	var buf bytes.Buffer
	m := &Merger{}
	if _, err := m.Merge(&buf, []string{f1, f2}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "#keep\n1\n#keep\n2\n" {
		t.Errorf("merged output = %q, zero marker must disable filtering", buf.String())
	}
}

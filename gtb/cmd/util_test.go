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
	"math"
	"testing"
)

func TestFilepathTrimExtension(t *testing.T) {
	tests := []struct {
		file string
		base string
		ext  string
	}{
		{"sample.sorted.bam", "sample.sorted", ".bam"},
		{"genome.fa.gz", "genome", ".fa.gz"},
		{"reads_1.fq.gz", "reads_1", ".fq.gz"},
		{"calls.vcf", "calls", ".vcf"},
		{"REF.FA", "REF", ".FA"},
		{"archive.gz", "archive", ".gz"},
		{"notes.weird", "notes", ".weird"},
		{"noext", "noext", ""},
	}

	for _, test := range tests {
		base, ext := filepathTrimExtension(test.file)
		if base != test.base || ext != test.ext {
			t.Errorf("%s: got (%q, %q), expected (%q, %q)",
				test.file, base, ext, test.base, test.ext)
		}
	}
}

func TestStringSplitNByByte(t *testing.T) {
	items := make([]string, 3)
	p := &items

	stringSplitNByByte("a\tb\tc\td", '\t', 3, p)
	if len(*p) != 3 || (*p)[0] != "a" || (*p)[1] != "b" || (*p)[2] != "c\td" {
		t.Errorf("got %v", *p)
	}

	stringSplitNByByte("a\tb", '\t', 3, p)
	if len(*p) != 2 || (*p)[0] != "a" || (*p)[1] != "b" {
		t.Errorf("got %v", *p)
	}

	stringSplitNByByte("abc", '\t', 3, p)
	if len(*p) != 1 || (*p)[0] != "abc" {
		t.Errorf("got %v", *p)
	}
}

func TestMeanStdev(t *testing.T) {
	if m, s := MeanStdev(nil); m != 0 || s != 0 {
		t.Errorf("empty: got (%f, %f)", m, s)
	}
	if m, s := MeanStdev([]float64{7}); m != 7 || s != 0 {
		t.Errorf("single value: got (%f, %f)", m, s)
	}

	m, s := MeanStdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if m != 5 {
		t.Errorf("mean = %f, expected 5", m)
	}
	if math.Abs(s-2) > 1e-9 {
		t.Errorf("stdev = %f, expected 2", s)
	}
}

func TestWrapByteSlice(t *testing.T) {
	tests := []struct {
		in    string
		width int
		out   string
	}{
		{"ACGTAC", 2, "AC\nGT\nAC"},
		{"ACGTA", 2, "AC\nGT\nA"},
		{"ACGT", 4, "ACGT"},
		{"ACGT", 0, "ACGT"},
		{"", 2, ""},
	}

	var buffer *bytes.Buffer
	var wrapped []byte
	for _, test := range tests {
		wrapped, buffer = wrapByteSlice([]byte(test.in), test.width, buffer)
		if string(wrapped) != test.out {
			t.Errorf("wrap %q by %d: got %q, expected %q",
				test.in, test.width, wrapped, test.out)
		}
	}
}

func TestMinMaxInt(t *testing.T) {
	if v := minInt(3, 1, 2); v != 1 {
		t.Errorf("minInt = %d", v)
	}
	if v := minInt(3); v != 3 {
		t.Errorf("minInt = %d", v)
	}
	if v := maxInt(3, 5, 4); v != 5 {
		t.Errorf("maxInt = %d", v)
	}
	if v := maxInt(3); v != 3 {
		t.Errorf("maxInt = %d", v)
	}
}

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

func TestGetGffAttribute(t *testing.T) {
	tests := []struct {
		attrs string
		tag   string
		value string
	}{
		{"ID=gene1;Name=ABC1", "ID", "gene1"},
		{"ID=gene1;Name=ABC1", "Name", "ABC1"},
		{"ID=gene1;Name=ABC1", "Alias", ""},
		{"ID=gene1;Name=ABC1", "ame", ""},
		{".", "ID", ""},
		{"", "ID", ""},
	}

	for _, test := range tests {
		if v := getGffAttribute(test.attrs, test.tag); v != test.value {
			t.Errorf("%s[%s] = %q, expected %q", test.attrs, test.tag, v, test.value)
		}
	}
}

func TestSetGffAttribute(t *testing.T) {
	tests := []struct {
		attrs string
		tag   string
		value string
		out   string
	}{
		{"ID=gene1;Name=old", "Name", "new", "ID=gene1;Name=new"},
		{"ID=gene1", "Name", "ABC1", "ID=gene1;Name=ABC1"},
		{"ID=gene1;", "Name", "ABC1", "ID=gene1;Name=ABC1"},
		{".", "Name", "ABC1", "Name=ABC1"},
		{"", "Name", "ABC1", "Name=ABC1"},
		{"Name=old;note=keep", "Name", "new", "Name=new;note=keep"},
	}

	for _, test := range tests {
		if v := setGffAttribute(test.attrs, test.tag, test.value); v != test.out {
			t.Errorf("set %s=%s on %q: got %q, expected %q",
				test.tag, test.value, test.attrs, v, test.out)
		}
	}
}

func TestReadTagMap(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "map.tsv")
	content := "# old\tnew\n" +
		"gene1\tABC1\n" +
		"\n" +
		"gene2\tABC2\textra column ignored\n" +
		"gene1\tABC1b\n"
	if err := ioutil.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	kvs, err := readTagMap(file)
	if err != nil {
		t.Fatal(err)
	}

	if len(kvs) != 2 {
		t.Fatalf("%d entries, expected 2", len(kvs))
	}
	if kvs["gene1"] != "ABC1b" { // later assignment wins
		t.Errorf("gene1 = %q", kvs["gene1"])
	}
	if kvs["gene2"] != "ABC2" {
		t.Errorf("gene2 = %q", kvs["gene2"])
	}
}

func TestReadTagMapInvalidLine(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.tsv")
	if err := ioutil.WriteFile(file, []byte("gene1\tABC1\nonly-one-column\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := readTagMap(file); err == nil {
		t.Error("expected an error for a one-column mapping line")
	}
}

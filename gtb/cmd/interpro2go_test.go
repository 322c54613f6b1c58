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

import "testing"

func TestGoAnnotations(t *testing.T) {
	tests := []struct {
		field    string
		expected []string
	}{
		{"GO:0003824|GO:0008152", []string{"GO:0003824", "GO:0008152"}},
		{"GO:0003824(InterPro)|GO:0008152(PANTHER)", []string{"GO:0003824", "GO:0008152"}},
		{"GO:0005515", []string{"GO:0005515"}},
		{"GO:0005515(InterPro)", []string{"GO:0005515"}},
		{"GO:0005515|GO:0005515(InterPro)", []string{"GO:0005515", "GO:0005515"}},
		{"-", nil},
		{"", nil},
		{"(InterPro)", nil},
	}

	for _, test := range tests {
		gos := goAnnotations(test.field)
		if len(gos) != len(test.expected) {
			t.Errorf("goAnnotations(%q): expected %d term(s), got %d", test.field, len(test.expected), len(gos))
			continue
		}
		for i, goID := range gos {
			if goID != test.expected[i] {
				t.Errorf("goAnnotations(%q): term %d: expected %s, got %s", test.field, i, test.expected[i], goID)
			}
		}
	}
}

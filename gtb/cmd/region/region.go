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

// Package region computes genomic interval windows from reference
// sequence dictionaries (FASTA index or BAM header) for region-parallel
// runs of external callers.
package region

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrNoSequences = errors.New("region: no sequences in input domain")

// A Sequence is one reference sequence description: its name and length.
// The sequence data itself is never inspected.
type Sequence struct {
	Name   string
	Length int
}

// A Region is one window on a named sequence, with both bounds inclusive
// as external callers expect them in "chrom:start-end" region strings.
type Region struct {
	Chrom string
	Start int
	End   int
}

// String formats the region the way freebayes and samtools accept it.
func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.End)
}

var slotReplacer = strings.NewReplacer(":", "_", "-", "_")

// Slot returns the path-safe form of the region string, with ":" and "-"
// normalized to "_": "Chr5:0-1000000" becomes "Chr5_0_1000000". The
// result is a pure function of the region, so the derived output path of
// a work unit never changes between runs.
func (r Region) Slot() string {
	return Slot(r.String())
}

// Slot normalizes any slot string for use in a file name.
func Slot(s string) string {
	return slotReplacer.Replace(s)
}

// Windows tiles a sequence of the given length into windows of the given
// size. The first window is (0, min(size, length)); every later window
// starts right after the previous one and is size wide, truncated at the
// sequence end. A length of 25 with size 10 gives (0,10), (11,20),
// (21,25); an exact multiple gives exactly length/size windows. Returns
// nil when length or size is < 1.
func Windows(chrom string, length int, size int) []Region {
	if length < 1 || size < 1 {
		return nil
	}

	end := size
	if end > length {
		end = length
	}
	windows := []Region{{Chrom: chrom, Start: 0, End: end}}

	for end < length {
		start := end + 1
		end += size
		if end > length {
			end = length
		}
		windows = append(windows, Region{Chrom: chrom, Start: start, End: end})
	}
	return windows
}

// WindowsFor tiles all sequences in order. When no sequence yields a
// window (no sequences, or only degenerate ones), it returns
// ErrNoSequences rather than an empty list.
func WindowsFor(seqs []Sequence, size int) ([]Region, error) {
	regions := make([]Region, 0, len(seqs))
	for _, s := range seqs {
		regions = append(regions, Windows(s.Name, s.Length, size)...)
	}
	if len(regions) == 0 {
		return nil, ErrNoSequences
	}
	return regions, nil
}

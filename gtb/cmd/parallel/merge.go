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
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// A Merger concatenates per-unit output files into one stream in strict
// ordinal order, with header de-duplication: every line of the first file
// is copied verbatim, and lines beginning with Marker are suppressed from
// all later files.
type Merger struct {
	// Marker is the comment/header marker, conventionally '#'.
	// A zero Marker disables header de-duplication.
	Marker byte

	// SkipMissing makes a non-existent input file a recorded skip
	// instead of an error. Any other read failure is always an error.
	SkipMissing bool
}

// MergeStats reports what one Merge call wrote.
type MergeStats struct {
	// Lines holds the number of lines written per input file, in input
	// order. Skipped files count as 0.
	Lines []int

	// Header is the number of marker lines written (all from the first
	// non-empty file).
	Header int

	// Skipped lists the missing files that were skipped; always empty
	// unless SkipMissing is set.
	Skipped []string
}

// Total returns the total number of lines written.
func (s *MergeStats) Total() int {
	var n int
	for _, l := range s.Lines {
		n += l
	}
	return n
}

// Merge copies files into w in the given order. The order must be the
// WorkUnit definition order, not completion order, and Merge must only be
// called after the dispatcher has fully joined, so no file has an active
// writer.
func (m *Merger) Merge(w io.Writer, files []string) (*MergeStats, error) {
	stats := &MergeStats{Lines: make([]int, len(files))}

	first := true
	for i, file := range files {
		reader, err := xopen.Ropen(file)
		if err != nil {
			if err == xopen.ErrNoContent { // empty file merges as zero lines
				continue
			}
			if m.SkipMissing && os.IsNotExist(errors.Cause(err)) {
				stats.Skipped = append(stats.Skipped, file)
				continue
			}
			return stats, errors.Wrap(err, file)
		}

		n, header, err := m.copyLines(w, reader, first)
		reader.Close()
		if err != nil {
			return stats, errors.Wrap(err, file)
		}

		stats.Lines[i] = n
		stats.Header += header
		first = false
	}

	return stats, nil
}

// copyLines writes one file's lines, filtering marker lines unless this is
// the first file. A missing newline on the last line is restored so the
// next file never joins onto it.
func (m *Merger) copyLines(w io.Writer, reader *xopen.Reader, first bool) (int, int, error) {
	var lines, header int
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			isMarker := m.Marker != 0 && line[0] == m.Marker
			if !isMarker || first {
				if line[len(line)-1] != '\n' {
					line = append(line, '\n')
				}
				if _, werr := w.Write(line); werr != nil {
					return lines, header, werr
				}
				lines++
				if isMarker {
					header++
				}
			}
		}
		if err == io.EOF {
			return lines, header, nil
		}
		if err != nil {
			return lines, header, err
		}
	}
}

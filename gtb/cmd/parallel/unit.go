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

// Package parallel runs an ordered list of external commands in sequential
// batches of bounded size and merges their per-unit output files.
//
// Every work unit writes to its own pre-computed output path, so the
// filesystem is the only synchronization primitive: no unit ever shares a
// path with another, and the merger only runs after the last batch has
// fully joined.
package parallel

import (
	"fmt"
	"time"
)

// A WorkUnit is one independently executable command plus the path where it
// is expected to write its output. Units are immutable once constructed;
// each one is consumed exactly once by Dispatcher.Run, and its output file
// is read exactly once by Merger.Merge.
type WorkUnit struct {
	// Index is the 1-based position in the global ordered sequence.
	// It is the unit's identity.
	Index int

	// Slot is the single varying parameter that distinguishes this unit
	// from its siblings, e.g. a region string "chr1:0-1000000" or a
	// parameter combination "K3_rep2". Used in diagnostics.
	Slot string

	Program string
	Args    []string

	// Output is the file this unit is expected to produce.
	Output string

	// CaptureStdout redirects the subprocess stdout to Output. When
	// false the command is expected to create Output itself and its
	// stdout is discarded.
	CaptureStdout bool

	// Dir is the working directory for the subprocess, empty for the
	// current one.
	Dir string
}

func (u *WorkUnit) String() string {
	return fmt.Sprintf("unit #%d (%s)", u.Index, u.Slot)
}

// A UnitResult records the terminal state of one dispatched WorkUnit.
type UnitResult struct {
	Unit *WorkUnit

	// Batch is the 1-based ordinal of the batch the unit ran in.
	Batch int

	Started  time.Time
	Finished time.Time

	// Err is nil iff the subprocess started and exited with status 0.
	Err error

	// Diagnostic holds the captured stderr of a failed unit, empty on
	// success.
	Diagnostic string
}

// Succeeded reports whether the unit's subprocess exited with status 0.
func (r *UnitResult) Succeeded() bool {
	return r.Err == nil
}

// Elapsed returns the wall time between start and terminal state.
func (r *UnitResult) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

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

package region

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/pkg/errors"
	"github.com/shenwei356/breader"
)

// FromFai reads sequence names and lengths from a FASTA index (.fai)
// file, in file order. Only the first two columns are used.
func FromFai(file string) ([]Sequence, error) {
	type seq2 struct {
		name   string
		length int
	}

	fn := func(line string) (interface{}, bool, error) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" || line[0] == '#' {
			return nil, false, nil
		}

		items := strings.SplitN(line, "\t", 3)
		if len(items) < 2 {
			return nil, false, fmt.Errorf("invalid .fai line: %s", line)
		}
		length, err := strconv.Atoi(items[1])
		if err != nil {
			return nil, false, fmt.Errorf("invalid sequence length for %s: %s", items[0], items[1])
		}
		return seq2{name: items[0], length: length}, true, nil
	}

	reader, err := breader.NewBufferedReader(file, 2, 64, fn)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}

	seqs := make([]Sequence, 0, 64)
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, errors.Wrap(chunk.Err, file)
		}
		for _, data := range chunk.Data {
			s := data.(seq2)
			seqs = append(seqs, Sequence{Name: s.name, Length: s.length})
		}
	}
	return seqs, nil
}

// FromBAM reads the reference dictionary from a BAM header, in header
// order. threads is the number of decompression threads, 0 for the
// default.
func FromBAM(file string, threads int) ([]Sequence, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	defer f.Close()

	reader, err := bam.NewReader(f, threads)
	if err != nil {
		return nil, errors.Wrapf(err, "reading BAM header of %s", file)
	}
	defer reader.Close()

	refs := reader.Header().Refs()
	seqs := make([]Sequence, 0, len(refs))
	for _, ref := range refs {
		seqs = append(seqs, Sequence{Name: ref.Name(), Length: ref.Len()})
	}
	return seqs, nil
}

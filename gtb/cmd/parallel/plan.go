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

// Expand builds the ordered cross-product of input files, parameter values
// and replicate ordinals, one work unit per combination: files outermost,
// then parameters, then replicates. build constructs the unit for one
// combination; Expand assigns Index 1..n in product order, overwriting
// whatever build set.
//
// An empty axis yields an empty product, which Dispatcher.Run rejects
// with ErrNoUnits before launching anything.
func Expand(files []string, params []string, replicates int, build func(file string, param string, replicate int) *WorkUnit) []*WorkUnit {
	units := make([]*WorkUnit, 0, len(files)*len(params)*replicates)
	for _, file := range files {
		for _, param := range params {
			for replicate := 1; replicate <= replicates; replicate++ {
				u := build(file, param, replicate)
				u.Index = len(units) + 1
				units = append(units, u)
			}
		}
	}
	return units
}

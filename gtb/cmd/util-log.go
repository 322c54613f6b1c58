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
	"os"

	"github.com/mattn/go-colorable"
	"github.com/shenwei356/go-logging"
)

func init() {
	backend := logging.NewLogBackend(colorable.NewColorableStderr(), "", 0)
	format := logging.MustStringFormatter(`%{color}%{time:15:04:05.000} %{color:reset}%{color}[%{level:.4s}]%{color:reset} %{message}`)
	logging.SetBackend(logging.NewBackendFormatter(backend, format))
}

// addLog tees log output into a plain-text log file. The returned file
// handle stays open for the whole run; the caller closes it after the
// elapsed-time trailer is written.
func addLog(file string, verbose bool) *os.File {
	fh, err := os.Create(file)
	checkError(err)

	backendStderr := logging.NewLogBackend(colorable.NewColorableStderr(), "", 0)
	formatStderr := logging.MustStringFormatter(`%{color}%{time:15:04:05.000} %{color:reset}%{color}[%{level:.4s}]%{color:reset} %{message}`)

	backendFile := logging.NewLogBackend(fh, "", 0)
	formatFile := logging.MustStringFormatter(`%{time:15:04:05.000} [%{level:.4s}] %{message}`)

	if verbose {
		logging.SetBackend(
			logging.NewBackendFormatter(backendStderr, formatStderr),
			logging.NewBackendFormatter(backendFile, formatFile))
	} else {
		logging.SetBackend(logging.NewBackendFormatter(backendFile, formatFile))
	}
	return fh
}

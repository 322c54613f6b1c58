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
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/breader"
	"github.com/spf13/cobra"
)

var interpro2goCmd = &cobra.Command{
	Use:   "interpro2go",
	Short: "Extract protein-GO pairs from InterProScan results",
	Long: `Extract protein-GO pairs from InterProScan results

The input is the tab-delimited output of InterProScan 5. GO annotations
are taken from column 14, which holds a "|"-separated list such as
GO:0003824|GO:0008152; a source given in parentheses, as in
GO:0003824(InterPro), is stripped. Rows without GO annotations are
ignored.

Pairs are de-duplicated keeping the first occurrence, so the output is
ordered by the first match of each protein-GO pair:

    protein <tab> GO:0003824

With --with-source a third column holds the InterPro accession
(column 12) of the match the pair was first seen in.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var err error

		outFile := getFlagString(cmd, "out-file")
		withSource := getFlagBool(cmd, "with-source")

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if opt.Verbose {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("no files given, reading from stdin")
			} else {
				log.Infof("%d input file(s) given", len(files))
			}
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(strings.ToLower(outFile), ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		type goPair struct {
			protein string
			goID    string
			source  string
		}

		fn := func(line string) (interface{}, bool, error) {
			line = strings.TrimRight(line, "\r\n")
			if line == "" || line[0] == '#' {
				return nil, false, nil
			}

			items := strings.Split(line, "\t")
			if len(items) < 14 {
				// rows without InterPro/GO annotation are shorter
				return nil, false, nil
			}
			gos := goAnnotations(items[13])
			if len(gos) == 0 {
				return nil, false, nil
			}

			pairs := make([]goPair, 0, len(gos))
			for _, goID := range gos {
				pairs = append(pairs, goPair{protein: items[0], goID: goID, source: items[11]})
			}
			return pairs, true, nil
		}

		seen := make(map[string]struct{}, 1024)
		proteins := make(map[string]struct{}, 1024)

		for _, file := range files {
			reader, err := breader.NewBufferedReader(file, opt.NumCPUs, 1000, fn)
			checkError(errors.Wrap(err, file))

			for chunk := range reader.Ch {
				checkError(errors.Wrap(chunk.Err, file))

				for _, data := range chunk.Data {
					for _, pair := range data.([]goPair) {
						key := pair.protein + "\t" + pair.goID
						if _, ok := seen[key]; ok {
							continue
						}
						seen[key] = struct{}{}
						proteins[pair.protein] = struct{}{}

						outfh.WriteString(key)
						if withSource {
							outfh.WriteByte('\t')
							outfh.WriteString(pair.source)
						}
						outfh.WriteByte('\n')
					}
				}
			}
		}

		if opt.Verbose {
			log.Infof("%d protein-GO pair(s) of %d protein(s) saved to %s", len(seen), len(proteins), outFile)
		}
	},
}

// goAnnotations splits the GO column of an InterProScan result row,
// stripping the source given in parentheses:
// "GO:0003824(InterPro)|GO:0008152" gives GO:0003824 and GO:0008152.
// Empty values ("" or "-") give nil.
func goAnnotations(field string) []string {
	if field == "" || field == "-" {
		return nil
	}

	gos := make([]string, 0, 4)
	for _, goID := range strings.Split(field, "|") {
		if i := strings.IndexByte(goID, '('); i >= 0 {
			goID = goID[:i]
		}
		goID = strings.TrimSpace(goID)
		if goID == "" || goID == "-" {
			continue
		}
		gos = append(gos, goID)
	}
	return gos
}

func init() {
	utilsCmd.AddCommand(interpro2goCmd)

	interpro2goCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))
	interpro2goCmd.Flags().BoolP("with-source", "s", false,
		formatFlagUsage(`Add a third column holding the InterPro accession the pair was first seen in.`))
}

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
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var hapmap2fastaCmd = &cobra.Command{
	Use:   "hapmap2fasta",
	Short: "Convert hapmap genotypes to per-sample FASTA sequences",
	Long: `Convert hapmap genotypes to per-sample FASTA sequences

Samples are taken from column 12 on of the hapmap header line (the line
starting with "rs#"); every following row contributes one position per
sample. Heterozygous genotypes are written as IUPAC ambiguity codes
(AG -> R, CT -> Y, GC -> S, AT -> W, GT -> K, AC -> M), "NN" as N and
"--" as a gap. Unrecognized genotypes become N.

Multiple input files (e.g. one per chromosome) are concatenated in the
given order; their sample columns must match the first file.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var err error

		outFile := getFlagString(cmd, "out-file")
		lineWidth := getFlagNonNegativeInt(cmd, "line-width")

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if opt.Verbose {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("no files given, reading from stdin")
			} else {
				log.Infof("%d input file(s) given", len(files))
			}
		}

		var samples []string
		var seqs [][]byte
		var nMarkers int

		var line string
		for _, file := range files {
			infh, r, _, err := inStream(file)
			checkError(err)

			haveHeader := false
			for {
				line, err = infh.ReadString('\n')
				if line != "" {
					line = strings.TrimRight(line, "\r\n")
					if line != "" && line[0] != '#' {
						items := strings.Fields(line)

						if !haveHeader {
							if items[0] != "rs#" {
								checkError(fmt.Errorf("not a hapmap header line (rs# expected) in %s: %s", file, items[0]))
							}
							if len(items) < 12 {
								checkError(fmt.Errorf("no sample columns in hapmap header of %s", file))
							}
							if samples == nil {
								samples = items[11:]
								seqs = make([][]byte, len(samples))
							} else if len(items)-11 != len(samples) {
								checkError(fmt.Errorf("%s has %d sample(s), the first file has %d", file, len(items)-11, len(samples)))
							} else {
								for i, sample := range items[11:] {
									if sample != samples[i] {
										checkError(fmt.Errorf("sample column %d of %s is %s, not %s as in the first file", i+12, file, sample, samples[i]))
									}
								}
							}
							haveHeader = true
						} else {
							if len(items) != len(samples)+11 {
								checkError(fmt.Errorf("invalid hapmap row with %d column(s) in %s: %s", len(items), file, items[0]))
							}
							for i, genotype := range items[11:] {
								seqs[i] = append(seqs[i], genotypeCode(genotype))
							}
							nMarkers++
						}
					}
				}
				if err != nil {
					if err == io.EOF {
						break
					}
					checkError(errors.Wrap(err, file))
				}
			}
			r.Close()
		}

		if len(samples) == 0 {
			checkError(fmt.Errorf("no hapmap data found"))
		}
		if opt.Verbose {
			log.Infof("%d marker(s) of %d sample(s) collected", nMarkers, len(samples))
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

		var buffer *bytes.Buffer
		var wrapped []byte
		for i, sample := range samples {
			outfh.Write(_mark_fasta)
			outfh.WriteString(sample)
			outfh.Write(_mark_newline)

			wrapped, buffer = wrapByteSlice(seqs[i], lineWidth, buffer)
			outfh.Write(wrapped)
			outfh.Write(_mark_newline)
		}
	},
}

var iupacCode = map[string]byte{
	"AA": 'A', "CC": 'C', "GG": 'G', "TT": 'T',
	"AG": 'R', "GA": 'R',
	"CT": 'Y', "TC": 'Y',
	"CG": 'S', "GC": 'S',
	"AT": 'W', "TA": 'W',
	"GT": 'K', "TG": 'K',
	"AC": 'M', "CA": 'M',
	"NN": 'N', "--": '-',
}

// genotypeCode collapses one hapmap genotype call into a single base:
// haploid calls pass through, diploid calls become IUPAC ambiguity
// codes, anything unrecognized becomes N.
func genotypeCode(genotype string) byte {
	switch len(genotype) {
	case 1:
		return strings.ToUpper(genotype)[0]
	case 2:
		if code, ok := iupacCode[strings.ToUpper(genotype)]; ok {
			return code
		}
	}
	return 'N'
}

func init() {
	utilsCmd.AddCommand(hapmap2fastaCmd)

	hapmap2fastaCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))
	hapmap2fastaCmd.Flags().IntP("line-width", "w", 60,
		formatFlagUsage(`Line width of the sequences, 0 for no wrapping.`))
}

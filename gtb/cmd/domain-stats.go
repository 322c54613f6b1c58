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
	"fmt"
	"strconv"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/breader"
	"github.com/spf13/cobra"
	prettytable "github.com/tatsushid/go-prettytable"
	"github.com/twotwotwo/sorts"
)

var domainStatsCmd = &cobra.Command{
	Use:   "domain-stats",
	Short: "Summarize domain matches in InterProScan TSV output",
	Long: `Summarize domain matches in InterProScan TSV output

For every analysis, signature or InterPro entry (-b/--by) this command
counts the matches, the distinct proteins carrying them and the mean
match length. Groups are printed most-matched first.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		outFile := getFlagString(cmd, "out-file")
		by := getFlagString(cmd, "by")
		tabular := getFlagBool(cmd, "tabular")

		switch by {
		case "analysis", "signature", "interpro":
			break
		default:
			checkError(fmt.Errorf("invalid value for flag -b/--by: %s. Available: analysis/signature/interpro", by))
		}

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if opt.Verbose {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("no files given, reading from stdin")
			} else {
				log.Infof("%d input file(s) given", len(files))
			}
		}

		fn := func(line string) (interface{}, bool, error) {
			line = strings.TrimRight(line, "\r\n")
			if line == "" || line[0] == '#' {
				return nil, false, nil
			}
			items := strings.Split(line, "\t")
			if len(items) < 11 {
				return nil, false, fmt.Errorf("invalid InterProScan TSV line with %d column(s): %s", len(items), line)
			}

			var key, desc string
			switch by {
			case "analysis":
				key = items[3]
			case "signature":
				key, desc = items[4], items[5]
			case "interpro":
				if len(items) < 13 { // rows without an InterPro annotation are shorter
					return nil, false, nil
				}
				key, desc = items[11], items[12]
			}
			if key == "" || key == "-" {
				return nil, false, nil
			}

			start, err := strconv.Atoi(items[6])
			if err != nil {
				return nil, false, fmt.Errorf("invalid match start of protein %s: %s", items[0], items[6])
			}
			stop, err := strconv.Atoi(items[7])
			if err != nil {
				return nil, false, fmt.Errorf("invalid match stop of protein %s: %s", items[0], items[7])
			}

			return domainMatch{protein: items[0], key: key, desc: desc, length: stop - start + 1}, true, nil
		}

		stats := make(map[string]*domainStat, 1024)
		proteins := make(map[string]struct{}, 1024)
		var nMatches int

		var match domainMatch
		var stat *domainStat
		var ok bool
		for _, file := range files {
			reader, err := breader.NewBufferedReader(file, opt.NumCPUs, 1000, fn)
			checkError(errors.Wrap(err, file))

			for chunk := range reader.Ch {
				checkError(chunk.Err)

				for _, data := range chunk.Data {
					match = data.(domainMatch)

					if stat, ok = stats[match.key]; !ok {
						stat = &domainStat{key: match.key, desc: match.desc, proteins: make(map[string]struct{}, 8)}
						stats[match.key] = stat
					}
					stat.matches++
					stat.totalLen += match.length
					stat.proteins[match.protein] = struct{}{}

					proteins[match.protein] = struct{}{}
					nMatches++
				}
			}
		}

		list := make(domainStatList, 0, len(stats))
		for _, stat = range stats {
			list = append(list, stat)
		}
		sorts.Quicksort(list)

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(strings.ToLower(outFile), ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		hasDesc := by != "analysis" // the analysis column carries no description

		if tabular {
			if hasDesc {
				fmt.Fprintf(outfh, "#%s\tdescription\tmatches\tproteins\tmeanLen\n", by)
			} else {
				fmt.Fprintf(outfh, "#%s\tmatches\tproteins\tmeanLen\n", by)
			}
			for _, stat = range list {
				if hasDesc {
					fmt.Fprintf(outfh, "%s\t%s\t%d\t%d\t%.1f\n",
						stat.key, stat.desc, stat.matches, len(stat.proteins),
						float64(stat.totalLen)/float64(stat.matches))
				} else {
					fmt.Fprintf(outfh, "%s\t%d\t%d\t%.1f\n",
						stat.key, stat.matches, len(stat.proteins),
						float64(stat.totalLen)/float64(stat.matches))
				}
			}
		} else {
			columns := []prettytable.Column{
				{Header: by},
			}
			if hasDesc {
				columns = append(columns, prettytable.Column{Header: "description"})
			}
			columns = append(columns, []prettytable.Column{
				{Header: "matches", AlignRight: true},
				{Header: "proteins", AlignRight: true},
				{Header: "meanLen", AlignRight: true},
			}...)

			tbl, err := prettytable.NewTable(columns...)
			checkError(err)
			tbl.Separator = "  "

			for _, stat = range list {
				meanLen := fmt.Sprintf("%.1f", float64(stat.totalLen)/float64(stat.matches))
				if hasDesc {
					tbl.AddRow(
						stat.key,
						stat.desc,
						humanize.Comma(int64(stat.matches)),
						humanize.Comma(int64(len(stat.proteins))),
						meanLen,
					)
				} else {
					tbl.AddRow(
						stat.key,
						humanize.Comma(int64(stat.matches)),
						humanize.Comma(int64(len(stat.proteins))),
						meanLen,
					)
				}
			}
			outfh.Write(tbl.Bytes())
		}

		if opt.Verbose {
			log.Infof("%d %s group(s) from %d match(es) of %d protein(s) saved to %s",
				len(list), by, nMatches, len(proteins), outFile)
		}
	},
}

type domainMatch struct {
	protein string
	key     string
	desc    string
	length  int
}

type domainStat struct {
	key      string
	desc     string
	matches  int
	totalLen int
	proteins map[string]struct{}
}

type domainStatList []*domainStat

func (l domainStatList) Len() int { return len(l) }
func (l domainStatList) Less(i, j int) bool {
	if l[i].matches > l[j].matches {
		return true
	}
	if l[i].matches < l[j].matches {
		return false
	}
	return l[i].key < l[j].key
}
func (l domainStatList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

func init() {
	utilsCmd.AddCommand(domainStatsCmd)

	domainStatsCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))
	domainStatsCmd.Flags().StringP("by", "b", "signature",
		formatFlagUsage(`Group matches by "analysis", "signature" or "interpro" entry.`))
	domainStatsCmd.Flags().BoolP("tabular", "T", false,
		formatFlagUsage("Output in machine-friendly tabular format."))
}

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
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/breader"
	"github.com/spf13/cobra"
)

var gffRetagCmd = &cobra.Command{
	Use:   "gff-retag",
	Short: "Set or rewrite an attribute tag of GFF3 features",
	Long: `Set or rewrite an attribute tag of GFF3 features

The value written into -t/--tag comes from one of:

  -v/--value     a fixed value, the same for every feature
  -F/--from-tag  another attribute of the same feature
  -M/--map       a two-column tab-delimited file, keyed by the value
                 of -T/--key-tag (default "ID")

An existing assignment of the tag is replaced, otherwise the tag is
appended to the attributes column. Features without a source value
(absent attribute, or key not in the map) are passed through unchanged
and counted. Comment lines and an embedded FASTA section are passed
through as is.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var err error

		tag := getFlagString(cmd, "tag")
		if tag == "" {
			checkError(fmt.Errorf("flag -t/--tag needed"))
		}
		value := getFlagString(cmd, "value")
		fromTag := getFlagString(cmd, "from-tag")
		mapFile := getFlagString(cmd, "map")
		keyTag := getFlagString(cmd, "key-tag")
		outFile := getFlagString(cmd, "out-file")

		var nSources int
		for _, s := range []string{value, fromTag, mapFile} {
			if s != "" {
				nSources++
			}
		}
		if nSources != 1 {
			checkError(fmt.Errorf("exactly one of -v/--value, -F/--from-tag and -M/--map is needed"))
		}

		var tagMap map[string]string
		if mapFile != "" {
			tagMap, err = readTagMap(mapFile)
			checkError(errors.Wrap(err, mapFile))
			if len(tagMap) == 0 {
				checkError(fmt.Errorf("no mappings in %s", mapFile))
			}
			if opt.Verbose {
				log.Infof("%d mapping(s) loaded from %s", len(tagMap), mapFile)
			}
		}

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

		type gffFeature struct {
			line    string
			feature bool
			changed bool
			missed  bool
		}

		fn := func(line string) (interface{}, bool, error) {
			line = strings.TrimRight(line, "\r\n")

			// comments, blank lines and an embedded FASTA section
			// have no tab and pass through
			if line == "" || line[0] == '#' || !strings.ContainsRune(line, '\t') {
				return gffFeature{line: line}, true, nil
			}

			items := strings.SplitN(line, "\t", 9)
			if len(items) < 9 {
				return nil, false, fmt.Errorf("invalid GFF3 line with %d column(s): %s", len(items), line)
			}

			var v string
			switch {
			case value != "":
				v = value
			case fromTag != "":
				v = getGffAttribute(items[8], fromTag)
			default:
				v = tagMap[getGffAttribute(items[8], keyTag)]
			}
			if v == "" {
				return gffFeature{line: line, feature: true, missed: true}, true, nil
			}

			items[8] = setGffAttribute(items[8], tag, v)
			return gffFeature{line: strings.Join(items, "\t"), feature: true, changed: true}, true, nil
		}

		var nFeatures, nChanged, nMissed int
		for _, file := range files {
			reader, err := breader.NewBufferedReader(file, opt.NumCPUs, 1000, fn)
			checkError(errors.Wrap(err, file))

			for chunk := range reader.Ch {
				checkError(errors.Wrap(chunk.Err, file))

				for _, data := range chunk.Data {
					f := data.(gffFeature)
					outfh.WriteString(f.line)
					outfh.WriteByte('\n')

					if f.feature {
						nFeatures++
					}
					if f.changed {
						nChanged++
					}
					if f.missed {
						nMissed++
					}
				}
			}
		}

		if opt.Verbose {
			log.Infof("%d feature(s) processed, %d retagged, %d without a source value", nFeatures, nChanged, nMissed)
		}
	},
}

// getGffAttribute returns the value of a tag in a GFF3 attributes column,
// "" if absent.
func getGffAttribute(attrs string, tag string) string {
	for _, item := range strings.Split(attrs, ";") {
		if strings.HasPrefix(item, tag+"=") {
			return item[len(tag)+1:]
		}
	}
	return ""
}

// setGffAttribute sets tag to value in a GFF3 attributes column, replacing
// an existing assignment and appending a new one otherwise.
func setGffAttribute(attrs string, tag string, value string) string {
	attrs = strings.TrimSuffix(attrs, ";")
	if attrs == "" || attrs == "." {
		return tag + "=" + value
	}

	items := strings.Split(attrs, ";")
	for i, item := range items {
		if strings.HasPrefix(item, tag+"=") {
			items[i] = tag + "=" + value
			return strings.Join(items, ";")
		}
	}
	return attrs + ";" + tag + "=" + value
}

// readTagMap loads a two-column tab-delimited mapping file. Later
// assignments of a key win.
func readTagMap(file string) (map[string]string, error) {
	fn := func(line string) (interface{}, bool, error) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" || line[0] == '#' {
			return nil, false, nil
		}
		items := strings.SplitN(line, "\t", 3)
		if len(items) < 2 {
			return nil, false, fmt.Errorf("invalid mapping line: %s", line)
		}
		return [2]string{items[0], items[1]}, true, nil
	}

	reader, err := breader.NewBufferedReader(file, 2, 100, fn)
	if err != nil {
		return nil, err
	}

	kvs := make(map[string]string, 1024)
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		for _, data := range chunk.Data {
			items := data.([2]string)
			kvs[items[0]] = items[1]
		}
	}
	return kvs, nil
}

func init() {
	utilsCmd.AddCommand(gffRetagCmd)

	gffRetagCmd.Flags().StringP("tag", "t", "", formatFlagUsage(`Attribute tag to set. (required)`))
	gffRetagCmd.Flags().StringP("value", "v", "", formatFlagUsage(`Fixed value to write into the tag.`))
	gffRetagCmd.Flags().StringP("from-tag", "F", "", formatFlagUsage(`Attribute tag to copy the value from.`))
	gffRetagCmd.Flags().StringP("map", "M", "", formatFlagUsage(`Two-column tab-delimited file mapping the value of -T/--key-tag to the new value.`))
	gffRetagCmd.Flags().StringP("key-tag", "T", "ID", formatFlagUsage(`Attribute tag whose value is the lookup key for -M/--map.`))

	gffRetagCmd.Flags().StringP("out-file", "o", "-", formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))
}

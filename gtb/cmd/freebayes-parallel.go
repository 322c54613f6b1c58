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
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/awesomedeer/GenoToolBox/gtb/cmd/parallel"
	"github.com/awesomedeer/GenoToolBox/gtb/cmd/region"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

var freebayesParallelCmd = &cobra.Command{
	Use:   "freebayes-parallel",
	Short: "Call variants with freebayes in parallel over genome windows",
	Long: `Call variants with freebayes in parallel over genome windows

The reference dictionary (sequence names and lengths) is read from the
header of the first BAM file, or from a FASTA index given with --fai,
and tiled into windows of -s/--bin-size bp. A sequence of 25 Mb with
10-Mb windows gives chrN:0-10000000, chrN:10000001-20000000 and
chrN:20000001-25000000.

BAM files are given as positional arguments, via -i/--infile-list, or
collected from a directory with -I/--in-dir.

One freebayes process is run per window:

    freebayes -f ref.fa -r <window> [extra args] <bam files> \
        > <out-dir>/<bam-basename>_<window>.vcf

Windows are dispatched in sequential batches of -j/--threads processes;
a new batch starts only after every process of the current one has
exited. A failed window never aborts the others: its captured stderr is
reported after the run, and the command exits non-zero unless
--skip-missing is given.

After the last batch the per-window VCFs are concatenated in window
order into -o/--out-file. The header lines (#...) of the first file are
kept, those of later files are dropped. A run manifest (_run.yml) with
the window tally and the XXH3 checksum of the merged VCF is written
into the output directory.

Attention:
  1. BAM files must be sorted and indexed. All of them are passed to
     every freebayes process for joint calling.
  2. There is no per-window timeout, a hung freebayes process hangs
     the run.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		timeStart := time.Now()
		defer func() {
			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		var err error

		// ---------------------------------------------------------------
		// basic flags

		refFile := getFlagString(cmd, "ref")
		if refFile == "" {
			checkError(fmt.Errorf("flag -f/--ref needed"))
		}
		refFile = expandPath(refFile)

		binSize := getFlagPositiveInt(cmd, "bin-size")
		faiFile := getFlagString(cmd, "fai")

		inDir := getFlagString(cmd, "in-dir")
		readFromDir := inDir != ""
		if readFromDir {
			var isDir bool
			isDir, err = pathutil.IsDir(inDir)
			if err != nil {
				checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			}
			if !isDir {
				checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
			}
		}

		reFileStr := getFlagString(cmd, "file-regexp")
		var reFile *regexp.Regexp
		if reFileStr != "" {
			if !reIgnoreCase.MatchString(reFileStr) {
				reFileStr = reIgnoreCaseStr + reFileStr
			}
			reFile, err = regexp.Compile(reFileStr)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))
		}

		outDir := getFlagString(cmd, "out-dir")
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir needed"))
		}
		force := getFlagBool(cmd, "force")
		outFile := getFlagString(cmd, "out-file")

		freebayes := getFlagString(cmd, "freebayes")
		extraArgs := getFlagStringSlice(cmd, "extra-arg")

		skipMissing := getFlagBool(cmd, "skip-missing")
		clean := getFlagBool(cmd, "clean")
		noProgress := getFlagBool(cmd, "no-progress")

		checkExecutable("freebayes", freebayes)

		// ---------------------------------------------------------------
		// input files

		if opt.Verbose || opt.Log2File {
			log.Infof("gtb v%s", VERSION)
			log.Info("  https://github.com/awesomedeer/GenoToolBox")
			log.Info()

			log.Info("checking input files ...")
		}
		var files []string
		if readFromDir {
			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			if err != nil {
				checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			}
			if len(files) == 0 {
				checkError(fmt.Errorf("no files matching regular expression: %s", reFileStr))
			}
		} else {
			files = getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
			if len(files) == 1 && isStdin(files[0]) {
				checkError(fmt.Errorf("BAM file(s) needed"))
			}
		}
		checkFileSuffix(opt, ".bam", files...)
		if opt.Verbose || opt.Log2File {
			log.Infof("  %d alignment file(s) given", len(files))
		}

		// ---------------------------------------------------------------
		// genome windows

		var seqs []region.Sequence
		var regionSource string
		if faiFile != "" {
			regionSource = faiFile
			seqs, err = region.FromFai(expandPath(faiFile))
		} else {
			regionSource = files[0]
			seqs, err = region.FromBAM(files[0], opt.NumCPUs)
		}
		checkError(err)

		regions, err := region.WindowsFor(seqs, binSize)
		checkError(errors.Wrap(err, regionSource))

		makeOutDir(outDir, force)

		base, _ := filepathTrimExtension(filepath.Base(files[0]))
		if outFile == "" {
			outFile = filepath.Join(outDir, base+".vcf")
		}

		units := make([]*parallel.WorkUnit, len(regions))
		for i, reg := range regions {
			unitArgs := make([]string, 0, len(extraArgs)+len(files)+4)
			unitArgs = append(unitArgs, "-f", refFile, "-r", reg.String())
			unitArgs = append(unitArgs, extraArgs...)
			unitArgs = append(unitArgs, files...)

			units[i] = &parallel.WorkUnit{
				Index:         i + 1,
				Slot:          reg.String(),
				Program:       freebayes,
				Args:          unitArgs,
				Output:        filepath.Join(outDir, fmt.Sprintf("%s_%s.vcf", base, reg.Slot())),
				CaptureStdout: true,
			}
		}

		// ---------------------------------------------------------------
		// log

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("reference: %s", refFile)
			log.Infof("reference dictionary from: %s, %d sequence(s)", regionSource, len(seqs))
			log.Infof("window size: %d bp, %d window(s)", binSize, len(regions))
			log.Infof("freebayes: %s", freebayes)
			if len(extraArgs) > 0 {
				log.Infof("extra freebayes arguments: %s", strings.Join(extraArgs, " "))
			}
			log.Infof("max parallel processes: %d", opt.NumCPUs)
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
		}

		// ---------------------------------------------------------------
		// dispatch

		// process bar
		var pbs *mpb.Progress
		var bar *mpb.Bar
		if opt.Verbose && !noProgress {
			pbs = mpb.New(mpb.WithWidth(79), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(units)),
				mpb.BarStyle("[=>-]<+"),
				mpb.PrependDecorators(
					decor.Name("processing window: ", decor.WC{W: len("freebayes") + 1, C: decor.DidentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.EwmaETA(decor.ET_STYLE_GO, 60),
				),
			)
		}

		dispatcher := &parallel.Dispatcher{
			Concurrency: opt.NumCPUs,
			UnitDone: func(r *parallel.UnitResult) {
				if bar != nil {
					bar.Increment()
					bar.DecoratorEwmaUpdate(r.Elapsed())
				}
			},
		}

		rr, err := dispatcher.Run(units)
		checkError(err)
		if pbs != nil {
			pbs.Wait()
		}

		if opt.Verbose || opt.Log2File {
			log.Infof("%d units executed across %d batches", rr.Units, rr.Batches)
		}

		// ---------------------------------------------------------------
		// failures

		if rr.Failed > 0 {
			for _, r := range rr.Results {
				if r.Succeeded() {
					continue
				}
				log.Errorf("window %s failed: %s", r.Unit.Slot, r.Err)
				for _, line := range strings.Split(r.Diagnostic, "\n") {
					if line != "" {
						log.Errorf("  freebayes: %s", line)
					}
				}
			}
			if !skipMissing {
				checkError(fmt.Errorf("%d of %d windows failed, use --skip-missing to merge the rest", rr.Failed, rr.Units))
			}

			// partial output of a failed window must not reach the
			// merged file
			for _, r := range rr.Results {
				if !r.Succeeded() {
					os.Remove(r.Unit.Output)
				}
			}
		}

		// ---------------------------------------------------------------
		// merge

		vcfFiles := make([]string, len(units))
		for i, unit := range units {
			vcfFiles[i] = unit.Output
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(strings.ToLower(outFile), ".gz"), opt.CompressionLevel)
		checkError(err)

		merger := &parallel.Merger{Marker: '#', SkipMissing: skipMissing}
		stats, err := merger.Merge(outfh, vcfFiles)
		checkError(err)

		checkError(outfh.Flush())
		if gw != nil {
			checkError(gw.Close())
		}
		checkError(w.Close())

		for _, file := range stats.Skipped {
			log.Warningf("missing per-window VCF skipped: %s", file)
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("%d record(s) and %d header line(s) saved to %s", stats.Total()-stats.Header, stats.Header, outFile)
		}

		// ---------------------------------------------------------------
		// run manifest

		info := NewRunInfo()
		info.Units = rr.Units
		info.Batches = rr.Batches
		info.Failed = rr.Failed
		info.FailedSlots = rr.FailedSlots()
		info.Elapsed = rr.Elapsed.String()
		if !isStdout(outFile) {
			info.Output = outFile
			checksum, err := fileXXH3(outFile)
			checkError(errors.Wrap(err, outFile))
			info.Checksum = checksum
		}
		checkError(info.WriteTo(filepath.Join(outDir, runInfoFile)))

		if clean {
			if opt.Verbose || opt.Log2File {
				log.Infof("removing %d per-window VCF file(s)", len(vcfFiles)-len(stats.Skipped))
			}
			for _, file := range vcfFiles {
				if filepath.Clean(file) != filepath.Clean(outFile) {
					os.Remove(file)
				}
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(freebayesParallelCmd)

	freebayesParallelCmd.Flags().StringP("ref", "f", "",
		formatFlagUsage(`Reference genome in FASTA format, passed to freebayes -f. (required)`))
	freebayesParallelCmd.Flags().IntP("bin-size", "s", 1000000,
		formatFlagUsage(`Genome window size in bp.`))
	freebayesParallelCmd.Flags().StringP("fai", "", "",
		formatFlagUsage(`FASTA index (.fai) to take the reference dictionary from, instead of the header of the first BAM file.`))

	freebayesParallelCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing BAM files. Directory symlinks are followed.`))
	freebayesParallelCmd.Flags().StringP("file-regexp", "r", `\.bam$`,
		formatFlagUsage(`Regular expression for matching alignment files in -I/--in-dir, case ignored.`))

	freebayesParallelCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory for per-window VCF files and the run manifest. (required)`))
	freebayesParallelCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))
	freebayesParallelCmd.Flags().StringP("out-file", "o", "",
		formatFlagUsage(`Merged VCF file, supports a ".gz" suffix ("-" for stdout). Default: <out-dir>/<bam-basename>.vcf`))

	freebayesParallelCmd.Flags().StringP("freebayes", "", "freebayes",
		formatFlagUsage(`Path to the freebayes executable.`))
	freebayesParallelCmd.Flags().StringSliceP("extra-arg", "a", []string{},
		formatFlagUsage(`Extra argument passed to every freebayes process, can be set multiple times, e.g. -a --min-alternate-count -a 3.`))

	freebayesParallelCmd.Flags().BoolP("skip-missing", "", false,
		formatFlagUsage(`Merge the VCFs of succeeded windows even when some windows failed, skipping missing files with a warning.`))
	freebayesParallelCmd.Flags().BoolP("clean", "", false,
		formatFlagUsage(`Remove per-window VCF files after a successful merge.`))
	freebayesParallelCmd.Flags().BoolP("no-progress", "", false,
		formatFlagUsage(`Do not show the progress bar.`))

	freebayesParallelCmd.SetUsageTemplate(usageTemplate("[flags] -f <ref.fa> -O <out dir> {[-I <bam dir>] | <bam files>}"))
}

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
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
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

var structureParallelCmd = &cobra.Command{
	Use:   "structure-parallel",
	Short: "Run STRUCTURE across a range of K values with replicates",
	Long: `Run STRUCTURE across a range of K values with replicates

One STRUCTURE process is run per combination of genotypes file, K value
(-k/--k-min to -K/--k-max) and replicate (-r/--replicates):

    structure -m <mainparams> -e <extraparams> -K <k> \
        -i <genotypes> -o <out-dir>/K<k>_rep<n> [-D <seed>]

Runs are dispatched in sequential batches of -j/--threads processes.
With --seed given, run #i gets the deterministic seed <seed>+i-1, so a
run list is exactly reproducible; otherwise STRUCTURE seeds itself.

The estimated Ln probability of the data is extracted from every
STRUCTURE output file (<prefix>_f) and written as a tab-delimited
summary (-o/--out-file, default <out-dir>/runs.tsv):

    #input  K  replicate  seed  lnProb  status  output

The summary feeds the Evanno delta-K helper in analysis/evanno for
picking the number of populations.

Attention:
  1. The -i flag of gtb is the input file list, not the STRUCTURE
     genotypes file. Genotypes files are positional arguments.
  2. A failed run is recorded with status "failed" and never aborts
     the other runs; the command exits non-zero at the end.

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

		mainParams := getFlagString(cmd, "mainparams")
		if mainParams == "" {
			checkError(fmt.Errorf("flag -m/--mainparams needed"))
		}
		extraParams := getFlagString(cmd, "extraparams")
		if extraParams == "" {
			checkError(fmt.Errorf("flag -e/--extraparams needed"))
		}
		for _, file := range []string{mainParams, extraParams} {
			existed, err := pathutil.Exists(file)
			checkError(errors.Wrap(err, file))
			if !existed {
				checkError(fmt.Errorf("parameter file not found: %s", file))
			}
		}

		kMin := getFlagPositiveInt(cmd, "k-min")
		kMax := getFlagPositiveInt(cmd, "k-max")
		if kMax < kMin {
			checkError(fmt.Errorf("value of -K/--k-max (%d) should not be smaller than -k/--k-min (%d)", kMax, kMin))
		}
		replicates := getFlagPositiveInt(cmd, "replicates")
		seed := getFlagNonNegativeInt(cmd, "seed")

		outDir := getFlagString(cmd, "out-dir")
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir needed"))
		}
		force := getFlagBool(cmd, "force")
		outFile := getFlagString(cmd, "out-file")

		structureBin := getFlagString(cmd, "structure")
		extraArgs := getFlagStringSlice(cmd, "extra-arg")
		noProgress := getFlagBool(cmd, "no-progress")

		checkExecutable("STRUCTURE", structureBin)

		// ---------------------------------------------------------------
		// input files

		if opt.Verbose || opt.Log2File {
			log.Infof("gtb v%s", VERSION)
			log.Info("  https://github.com/awesomedeer/GenoToolBox")
			log.Info()

			log.Info("checking input files ...")
		}
		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if len(files) == 1 && isStdin(files[0]) {
			checkError(fmt.Errorf("genotypes file(s) needed"))
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("  %d genotypes file(s) given", len(files))
		}

		// ---------------------------------------------------------------
		// work units: file x K x replicate

		kValues := make([]string, 0, kMax-kMin+1)
		for k := kMin; k <= kMax; k++ {
			kValues = append(kValues, strconv.Itoa(k))
		}

		makeOutDir(outDir, force)
		if outFile == "" {
			outFile = filepath.Join(outDir, "runs.tsv")
		}

		type structureRun struct {
			input  string
			k      int
			rep    int
			seed   int
			lnProb float64
			ok     bool
		}
		runs := make([]*structureRun, 0, len(files)*len(kValues)*replicates)

		multiFile := len(files) > 1
		units := parallel.Expand(files, kValues, replicates, func(file, kStr string, replicate int) *parallel.WorkUnit {
			slot := fmt.Sprintf("K%s_rep%d", kStr, replicate)
			if multiFile {
				base, _ := filepathTrimExtension(filepath.Base(file))
				slot = region.Slot(fmt.Sprintf("%s_%s", base, slot))
			}
			prefix := filepath.Join(outDir, slot)

			unitArgs := make([]string, 0, len(extraArgs)+12)
			unitArgs = append(unitArgs,
				"-m", mainParams,
				"-e", extraParams,
				"-K", kStr,
				"-i", file,
				"-o", prefix)
			unitArgs = append(unitArgs, extraArgs...)

			k, _ := strconv.Atoi(kStr)
			runs = append(runs, &structureRun{input: file, k: k, rep: replicate})

			// STRUCTURE appends "_f" to its output prefix
			return &parallel.WorkUnit{
				Slot:    slot,
				Program: structureBin,
				Args:    unitArgs,
				Output:  prefix + "_f",
			}
		})

		if seed > 0 {
			for i, u := range units {
				runs[i].seed = seed + i
				u.Args = append(u.Args, "-D", strconv.Itoa(seed+i))
			}
		}

		// ---------------------------------------------------------------
		// log

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("mainparams: %s", mainParams)
			log.Infof("extraparams: %s", extraParams)
			log.Infof("K: %d-%d, replicates: %d, %d run(s)", kMin, kMax, replicates, len(units))
			if seed > 0 {
				log.Infof("seeds: %d-%d", seed, seed+len(units)-1)
			} else {
				log.Infof("seeds: chosen by STRUCTURE")
			}
			log.Infof("STRUCTURE: %s", structureBin)
			if len(extraArgs) > 0 {
				log.Infof("extra STRUCTURE arguments: %s", strings.Join(extraArgs, " "))
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
					decor.Name("processing run: ", decor.WC{W: len("structure") + 1, C: decor.DidentRight}),
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

		for _, r := range rr.Results {
			if r.Succeeded() {
				continue
			}
			log.Errorf("run %s failed: %s", r.Unit.Slot, r.Err)
			for _, line := range strings.Split(r.Diagnostic, "\n") {
				if line != "" {
					log.Errorf("  STRUCTURE: %s", line)
				}
			}
		}

		// ---------------------------------------------------------------
		// collect Ln P(D) from STRUCTURE output files

		for i, r := range rr.Results {
			if !r.Succeeded() {
				continue
			}
			lnProb, err := scanLnProb(r.Unit.Output)
			if err != nil {
				log.Warningf("run %s: %s", r.Unit.Slot, err)
				continue
			}
			runs[i].lnProb = lnProb
			runs[i].ok = true
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(strings.ToLower(outFile), ".gz"), opt.CompressionLevel)
		checkError(err)

		fmt.Fprintln(outfh, "#input\tK\treplicate\tseed\tlnProb\tstatus\toutput")
		for i, run := range runs {
			seedStr := "-"
			if run.seed > 0 {
				seedStr = strconv.Itoa(run.seed)
			}
			lnProbStr := "NA"
			if run.ok {
				lnProbStr = strconv.FormatFloat(run.lnProb, 'f', 4, 64)
			}
			status := StageStatusDone
			if !rr.Results[i].Succeeded() {
				status = StageStatusFailed
			}
			fmt.Fprintf(outfh, "%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
				run.input, run.k, run.rep, seedStr, lnProbStr, status, rr.Results[i].Unit.Output)
		}

		checkError(outfh.Flush())
		if gw != nil {
			checkError(gw.Close())
		}
		checkError(w.Close())

		if opt.Verbose || opt.Log2File {
			log.Infof("run summary saved to %s", outFile)

			byK := make(map[int][]float64, len(kValues))
			for _, run := range runs {
				if run.ok {
					byK[run.k] = append(byK[run.k], run.lnProb)
				}
			}
			for k := kMin; k <= kMax; k++ {
				vals := byK[k]
				if len(vals) == 0 {
					continue
				}
				mean, stdev := MeanStdev(vals)
				log.Infof("  K=%d: mean Ln P(D) = %.2f, stdev = %.2f, %d/%d run(s)",
					k, mean, stdev, len(vals), len(files)*replicates)
			}
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

		if rr.Failed > 0 {
			checkError(fmt.Errorf("%d of %d STRUCTURE runs failed", rr.Failed, rr.Units))
		}
	},
}

var reLnProb = regexp.MustCompile(`Estimated Ln Prob of Data\s+=\s+(-?\d+\.?\d*)`)

// scanLnProb extracts the estimated Ln probability of the data from a
// STRUCTURE output file (<prefix>_f).
func scanLnProb(file string) (float64, error) {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return 0, err
	}
	found := reLnProb.FindSubmatch(data)
	if found == nil {
		return 0, fmt.Errorf("no estimated Ln prob in %s", file)
	}
	return strconv.ParseFloat(string(found[1]), 64)
}

func init() {
	RootCmd.AddCommand(structureParallelCmd)

	structureParallelCmd.Flags().StringP("mainparams", "m", "",
		formatFlagUsage(`STRUCTURE mainparams file. (required)`))
	structureParallelCmd.Flags().StringP("extraparams", "e", "",
		formatFlagUsage(`STRUCTURE extraparams file. (required)`))

	structureParallelCmd.Flags().IntP("k-min", "k", 1,
		formatFlagUsage(`Minimum number of populations (K) to test.`))
	structureParallelCmd.Flags().IntP("k-max", "K", 10,
		formatFlagUsage(`Maximum number of populations (K) to test.`))
	structureParallelCmd.Flags().IntP("replicates", "r", 3,
		formatFlagUsage(`Number of replicate runs per K.`))
	structureParallelCmd.Flags().IntP("seed", "", 0,
		formatFlagUsage(`Base random seed, run #i gets seed+i-1. 0 leaves seeding to STRUCTURE.`))

	structureParallelCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory for STRUCTURE results and the run manifest. (required)`))
	structureParallelCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))
	structureParallelCmd.Flags().StringP("out-file", "o", "",
		formatFlagUsage(`Tab-delimited run summary ("-" for stdout). Default: <out-dir>/runs.tsv`))

	structureParallelCmd.Flags().StringP("structure", "", "structure",
		formatFlagUsage(`Path to the STRUCTURE executable.`))
	structureParallelCmd.Flags().StringSliceP("extra-arg", "a", []string{},
		formatFlagUsage(`Extra argument passed to every STRUCTURE process, can be set multiple times.`))
	structureParallelCmd.Flags().BoolP("no-progress", "", false,
		formatFlagUsage(`Do not show the progress bar.`))

	structureParallelCmd.SetUsageTemplate(usageTemplate("[flags] -m <mainparams> -e <extraparams> -O <out dir> <genotypes files>"))
}

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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/awesomedeer/GenoToolBox/gtb/cmd/parallel"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var repeatProfileCmd = &cobra.Command{
	Use:   "repeat-profile",
	Short: "Profile the repeat space of a genome from raw reads",
	Long: `Profile the repeat space of a genome from raw reads

Repeats are assembled directly from raw reads with REPdenovo,
classified with RepeatMasker, and their abundance is profiled by
mapping the reads back to the assembled repeat contigs:

    read-stats       fastq-stats on every read file
    repdenovo-config generate the REPdenovo configuration and read list
    repdenovo        assemble repeat contigs (contigs.fa)
    contig-stats     length statistics of the assembled contigs
    repeatmasker     classify the contigs
    bwa-index        index the contigs
    bwa-mem          map every read file back to the contigs
    sam-sort         sort the alignments with samtools
    genomecov        per-base coverage with bedtools genomecov -bga
    coverage-merge   concatenate the per-file coverage tables

The run is configured with a YAML file (-c/--config):

    reads:                  # or pass read files as arguments
      - sample_R1.fastq.gz
      - sample_R2.fastq.gz
    insertSize: 300
    insertSd: 30
    genomeSize: 120000000   # or genome: ref.fa to count it
    repdenovo:
      minRepeatFreq: 10
      kMin: 30
      kMax: 50
      kInc: 10
      minContigLength: 50
    repeatmasker:
      species: maize
    tools:
      repdenovo: /opt/REPdenovo/main.py
      jellyfish: GLOBAL
      velvet: GLOBAL

Every stage is recorded in the run manifest (_run.yml) when it ends, so
an interrupted run can be continued with --resume: stages already
marked done are skipped. Any failed unit aborts the pipeline after its
stage is recorded.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

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

		configFile := getFlagString(cmd, "config")
		if configFile == "" {
			checkError(fmt.Errorf("flag -c/--config needed"))
		}

		outDir := getFlagString(cmd, "out-dir")
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir needed"))
		}
		force := getFlagBool(cmd, "force")
		resume := getFlagBool(cmd, "resume")
		if force && resume {
			checkError(fmt.Errorf("flag --force and --resume are mutually exclusive"))
		}

		// ---------------------------------------------------------------
		// configuration

		v := viper.New()
		v.SetConfigFile(configFile)

		v.SetDefault("insertSize", 300)
		v.SetDefault("insertSd", 30)
		v.SetDefault("repdenovo.minRepeatFreq", 10)
		v.SetDefault("repdenovo.kMin", 30)
		v.SetDefault("repdenovo.kMax", 50)
		v.SetDefault("repdenovo.kInc", 10)
		v.SetDefault("repdenovo.minContigLength", 50)
		v.SetDefault("tools.repdenovo", "main.py")
		v.SetDefault("tools.repeatMasker", "RepeatMasker")
		v.SetDefault("tools.bwa", "bwa")
		v.SetDefault("tools.samtools", "samtools")
		v.SetDefault("tools.bedtools", "bedtools")
		v.SetDefault("tools.fastqStats", "fastq-stats")
		v.SetDefault("tools.jellyfish", "GLOBAL")
		v.SetDefault("tools.velvet", "GLOBAL")

		checkError(errors.Wrap(v.ReadInConfig(), configFile))

		insertSize := v.GetInt("insertSize")
		insertSd := v.GetInt("insertSd")
		genomeSize := v.GetInt("genomeSize")
		genomeFile := v.GetString("genome")
		if genomeSize == 0 && genomeFile == "" {
			checkError(fmt.Errorf("%s: either genomeSize or genome is needed", configFile))
		}

		toolFastqStats := v.GetString("tools.fastqStats")
		toolRepdenovo := v.GetString("tools.repdenovo")
		toolRepeatMasker := v.GetString("tools.repeatMasker")
		toolBwa := v.GetString("tools.bwa")
		toolSamtools := v.GetString("tools.samtools")
		toolBedtools := v.GetString("tools.bedtools")

		for _, tool := range [][2]string{
			{"fastq-stats", toolFastqStats},
			{"REPdenovo", toolRepdenovo},
			{"RepeatMasker", toolRepeatMasker},
			{"bwa", toolBwa},
			{"samtools", toolSamtools},
			{"bedtools", toolBedtools},
		} {
			checkExecutable(tool[0], tool[1])
		}

		// ---------------------------------------------------------------
		// read files

		if opt.Verbose || opt.Log2File {
			log.Infof("gtb v%s", VERSION)
			log.Info("  https://github.com/awesomedeer/GenoToolBox")
			log.Info()

			log.Info("checking input files ...")
		}
		reads := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if len(reads) == 1 && isStdin(reads[0]) {
			reads = nil
			for _, file := range v.GetStringSlice("reads") {
				reads = append(reads, expandPath(file))
			}
		}
		if len(reads) == 0 {
			checkError(fmt.Errorf("no read files, give them as arguments or as reads: in %s", configFile))
		}
		for _, file := range reads {
			existed, err := pathutil.Exists(file)
			checkError(errors.Wrap(err, file))
			if !existed {
				checkError(fmt.Errorf("read file not found: %s", file))
			}
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("  %d read file(s) given", len(reads))
		}

		// ---------------------------------------------------------------
		// output layout

		if resume {
			existed, err := pathutil.DirExists(outDir)
			checkError(errors.Wrap(err, outDir))
			if !existed {
				makeOutDir(outDir, force)
			}
		} else {
			makeOutDir(outDir, force)
		}

		statsDir := filepath.Join(outDir, "stats")
		alnDir := filepath.Join(outDir, "aln")
		rmDir := filepath.Join(outDir, "repeatmasker")
		repdenovoDir := filepath.Join(outDir, "repdenovo")
		for _, dir := range []string{statsDir, alnDir, rmDir, repdenovoDir} {
			checkError(os.MkdirAll(dir, 0755))
		}

		cfgFile := filepath.Join(outDir, "repdenovo.config")
		readsList := filepath.Join(outDir, "repdenovo.reads.list")
		contigsFile := filepath.Join(repdenovoDir, "contigs.fa")
		coverageFile := filepath.Join(outDir, "coverage.tsv")
		manifestFile := filepath.Join(outDir, runInfoFile)

		// ---------------------------------------------------------------
		// run manifest, previous stages on --resume

		info := NewRunInfo()
		if resume {
			existed, err := pathutil.Exists(manifestFile)
			checkError(errors.Wrap(err, manifestFile))
			if existed {
				prev, err := RunInfoFromFile(manifestFile)
				checkError(err)
				info.Stages = prev.Stages
				if opt.Verbose || opt.Log2File {
					log.Infof("resuming from %s, %d stage(s) recorded", manifestFile, len(prev.Stages))
				}
			}
		}

		// ---------------------------------------------------------------
		// log

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("configuration: %s", configFile)
			if genomeSize > 0 {
				log.Infof("genome size: %s bp", humanize.Comma(int64(genomeSize)))
			} else {
				log.Infof("genome size: counted from %s", genomeFile)
			}
			log.Infof("insert size: %d +/- %d", insertSize, insertSd)
			log.Infof("REPdenovo: %s", toolRepdenovo)
			log.Infof("RepeatMasker: %s", toolRepeatMasker)
			log.Infof("jellyfish: %s, velvet: %s", v.GetString("tools.jellyfish"), v.GetString("tools.velvet"))
			log.Infof("max parallel processes: %d", opt.NumCPUs)
			log.Infof("-------------------- [main parameters] --------------------")
		}

		// ---------------------------------------------------------------
		// stage machinery

		var totalUnits, totalBatches, totalFailed int

		runUnits := func(tool string, units []*parallel.WorkUnit, concurrency int) (*parallel.RunResult, error) {
			dispatcher := &parallel.Dispatcher{
				Concurrency: concurrency,
				UnitDone: func(r *parallel.UnitResult) {
					if (opt.Verbose || opt.Log2File) && r.Succeeded() {
						log.Infof("  %s: %s done in %s", tool, r.Unit.Slot, r.Elapsed())
					}
				},
			}
			rr, err := dispatcher.Run(units)
			if err != nil {
				return nil, err
			}
			totalUnits += rr.Units
			totalBatches += rr.Batches
			totalFailed += rr.Failed

			for _, r := range rr.Results {
				if r.Succeeded() {
					continue
				}
				log.Errorf("%s %s failed: %s", tool, r.Unit.Slot, r.Err)
				for _, line := range strings.Split(r.Diagnostic, "\n") {
					if line != "" {
						log.Errorf("  %s: %s", tool, line)
					}
				}
			}
			if rr.Failed > 0 {
				return rr, fmt.Errorf("%d of %d %s unit(s) failed", rr.Failed, rr.Units, tool)
			}
			return rr, nil
		}

		runStage := func(name string, fn func() (int, int, error)) {
			if s := info.Stage(name); resume && s != nil && s.Status == StageStatusDone {
				if opt.Verbose || opt.Log2File {
					log.Infof("stage %s already done, skipping", name)
				}
				return
			}

			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("==================== [stage: %s] ====================", name)
			}
			timeStage := time.Now()

			units, failed, err := fn()

			stage := StageInfo{
				Name:    name,
				Status:  StageStatusDone,
				Units:   units,
				Failed:  failed,
				Elapsed: time.Since(timeStage).String(),
			}
			if err != nil {
				stage.Status = StageStatusFailed
			}
			info.SetStage(stage)
			info.Units = totalUnits
			info.Batches = totalBatches
			info.Failed = totalFailed
			info.Elapsed = time.Since(timeStart).String()
			checkError(info.WriteTo(manifestFile))

			checkError(err)
		}

		// ---------------------------------------------------------------
		// 1. fastq-stats on every read file

		statsFiles := make([]string, len(reads))
		for i, file := range reads {
			base, _ := filepathTrimExtension(filepath.Base(file))
			statsFiles[i] = filepath.Join(statsDir, base+".stats.txt")
		}

		runStage("read-stats", func() (int, int, error) {
			units := make([]*parallel.WorkUnit, len(reads))
			for i, file := range reads {
				base, _ := filepathTrimExtension(filepath.Base(file))
				units[i] = &parallel.WorkUnit{
					Index:         i + 1,
					Slot:          base,
					Program:       toolFastqStats,
					Args:          []string{file},
					Output:        statsFiles[i],
					CaptureStdout: true,
				}
			}
			rr, err := runUnits("fastq-stats", units, opt.NumCPUs)
			if rr == nil {
				return 0, 0, err
			}
			return rr.Units, rr.Failed, err
		})

		var totalReads int
		var readLength int
		{
			var weighted float64
			for _, file := range statsFiles {
				nReads, meanLen, err := parseFastqStats(file)
				checkError(errors.Wrap(err, file))
				totalReads += nReads
				weighted += float64(nReads) * meanLen
			}
			if totalReads == 0 {
				checkError(fmt.Errorf("no reads counted by fastq-stats"))
			}
			readLength = int(weighted/float64(totalReads) + 0.5)
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("%s read(s), mean length %d bp", humanize.Comma(int64(totalReads)), readLength)
		}

		// ---------------------------------------------------------------
		// 2. REPdenovo configuration

		runStage("repdenovo-config", func() (int, int, error) {
			if genomeSize == 0 {
				n, err := countGenomeSize(genomeFile)
				if err != nil {
					return 0, 0, errors.Wrap(err, genomeFile)
				}
				genomeSize = n
				if opt.Verbose || opt.Log2File {
					log.Infof("genome size counted from %s: %s bp", genomeFile, humanize.Comma(int64(genomeSize)))
				}
			}
			readDepth := int(float64(totalReads) * float64(readLength) / float64(genomeSize))
			if readDepth < 1 {
				readDepth = 1
			}

			var buf bytes.Buffer
			err := repdenovoConfigTmpl.Execute(&buf, repdenovoConfig{
				MinRepeatFreq:   v.GetInt("repdenovo.minRepeatFreq"),
				KMin:            v.GetInt("repdenovo.kMin"),
				KMax:            v.GetInt("repdenovo.kMax"),
				KInc:            v.GetInt("repdenovo.kInc"),
				ReadLength:      readLength,
				ReadDepth:       readDepth,
				GenomeLength:    genomeSize,
				MinContigLength: v.GetInt("repdenovo.minContigLength"),
				Threads:         opt.NumCPUs,
				BwaPath:         toolBwa,
				SamtoolsPath:    toolSamtools,
				JellyfishPath:   v.GetString("tools.jellyfish"),
				VelvetPath:      v.GetString("tools.velvet"),
				OutputFolder:    repdenovoDir,
			})
			if err != nil {
				return 0, 0, err
			}
			if err = ioutil.WriteFile(cfgFile, buf.Bytes(), 0644); err != nil {
				return 0, 0, err
			}

			buf.Reset()
			for _, file := range reads {
				fmt.Fprintf(&buf, "%s %d %d\n", file, insertSize, insertSd)
			}
			if err = ioutil.WriteFile(readsList, buf.Bytes(), 0644); err != nil {
				return 0, 0, err
			}

			if opt.Verbose || opt.Log2File {
				log.Infof("REPdenovo configuration saved to %s, read depth %d", cfgFile, readDepth)
			}
			return 0, 0, nil
		})

		// ---------------------------------------------------------------
		// 3. REPdenovo assembly

		runStage("repdenovo", func() (int, int, error) {
			units := []*parallel.WorkUnit{{
				Index:         1,
				Slot:          "repdenovo",
				Program:       toolRepdenovo,
				Args:          []string{"-P", "-c", cfgFile, "-r", readsList},
				Output:        filepath.Join(outDir, "repdenovo.log"),
				CaptureStdout: true,
			}}
			rr, err := runUnits("REPdenovo", units, 1)
			if rr == nil {
				return 0, 0, err
			}
			if err != nil {
				return rr.Units, rr.Failed, err
			}
			existed, err := pathutil.Exists(contigsFile)
			if err == nil && !existed {
				err = fmt.Errorf("REPdenovo finished but wrote no %s", contigsFile)
			}
			return rr.Units, rr.Failed, err
		})

		// ---------------------------------------------------------------
		// 4. contig statistics

		runStage("contig-stats", func() (int, int, error) {
			n, totalBp, minLen, maxLen, err := contigStats(contigsFile)
			if err != nil {
				return 0, 0, err
			}
			if n == 0 {
				return 0, 0, fmt.Errorf("no repeat contigs assembled in %s", contigsFile)
			}

			var buf bytes.Buffer
			fmt.Fprintln(&buf, "#file\tcontigs\tbases\tminLen\tmeanLen\tmaxLen")
			fmt.Fprintf(&buf, "%s\t%d\t%d\t%d\t%.1f\t%d\n",
				contigsFile, n, totalBp, minLen, float64(totalBp)/float64(n), maxLen)
			if err = ioutil.WriteFile(filepath.Join(statsDir, "contigs.stats.tsv"), buf.Bytes(), 0644); err != nil {
				return 0, 0, err
			}

			if opt.Verbose || opt.Log2File {
				log.Infof("%d repeat contig(s), %s bp, length %d-%d",
					n, humanize.Comma(int64(totalBp)), minLen, maxLen)
			}
			return 0, 0, nil
		})

		// ---------------------------------------------------------------
		// 5. RepeatMasker classification

		runStage("repeatmasker", func() (int, int, error) {
			rmArgs := []string{"-pa", strconv.Itoa(opt.NumCPUs), "-dir", rmDir}
			if species := v.GetString("repeatmasker.species"); species != "" {
				rmArgs = append(rmArgs, "-species", species)
			}
			if engine := v.GetString("repeatmasker.engine"); engine != "" {
				rmArgs = append(rmArgs, "-engine", engine)
			}
			rmArgs = append(rmArgs, v.GetStringSlice("repeatmasker.extra")...)
			rmArgs = append(rmArgs, contigsFile)

			units := []*parallel.WorkUnit{{
				Index:         1,
				Slot:          "repeatmasker",
				Program:       toolRepeatMasker,
				Args:          rmArgs,
				Output:        filepath.Join(outDir, "repeatmasker.log"),
				CaptureStdout: true,
			}}
			rr, err := runUnits("RepeatMasker", units, 1)
			if rr == nil {
				return 0, 0, err
			}
			return rr.Units, rr.Failed, err
		})

		// ---------------------------------------------------------------
		// 6-8. map reads back to the contigs

		runStage("bwa-index", func() (int, int, error) {
			units := []*parallel.WorkUnit{{
				Index:   1,
				Slot:    "bwa-index",
				Program: toolBwa,
				Args:    []string{"index", contigsFile},
				Output:  contigsFile + ".bwt",
			}}
			rr, err := runUnits("bwa", units, 1)
			if rr == nil {
				return 0, 0, err
			}
			return rr.Units, rr.Failed, err
		})

		samFiles := make([]string, len(reads))
		bamFiles := make([]string, len(reads))
		covFiles := make([]string, len(reads))
		for i, file := range reads {
			base, _ := filepathTrimExtension(filepath.Base(file))
			samFiles[i] = filepath.Join(alnDir, base+".sam")
			bamFiles[i] = filepath.Join(alnDir, base+".sorted.bam")
			covFiles[i] = filepath.Join(alnDir, base+".cov.tsv")
		}

		runStage("bwa-mem", func() (int, int, error) {
			units := make([]*parallel.WorkUnit, len(reads))
			for i, file := range reads {
				units[i] = &parallel.WorkUnit{
					Index:         i + 1,
					Slot:          filepath.Base(samFiles[i]),
					Program:       toolBwa,
					Args:          []string{"mem", "-t", strconv.Itoa(opt.NumCPUs), contigsFile, file},
					Output:        samFiles[i],
					CaptureStdout: true,
				}
			}
			// bwa mem is multi-threaded itself, one unit at a time
			rr, err := runUnits("bwa", units, 1)
			if rr == nil {
				return 0, 0, err
			}
			return rr.Units, rr.Failed, err
		})

		runStage("sam-sort", func() (int, int, error) {
			units := make([]*parallel.WorkUnit, len(reads))
			for i := range reads {
				units[i] = &parallel.WorkUnit{
					Index:   i + 1,
					Slot:    filepath.Base(bamFiles[i]),
					Program: toolSamtools,
					Args:    []string{"sort", "-@", strconv.Itoa(opt.NumCPUs), "-o", bamFiles[i], samFiles[i]},
					Output:  bamFiles[i],
				}
			}
			rr, err := runUnits("samtools", units, 1)
			if rr == nil {
				return 0, 0, err
			}
			return rr.Units, rr.Failed, err
		})

		runStage("genomecov", func() (int, int, error) {
			units := make([]*parallel.WorkUnit, len(reads))
			for i := range reads {
				units[i] = &parallel.WorkUnit{
					Index:         i + 1,
					Slot:          filepath.Base(covFiles[i]),
					Program:       toolBedtools,
					Args:          []string{"genomecov", "-bga", "-ibam", bamFiles[i]},
					Output:        covFiles[i],
					CaptureStdout: true,
				}
			}
			rr, err := runUnits("bedtools", units, opt.NumCPUs)
			if rr == nil {
				return 0, 0, err
			}
			return rr.Units, rr.Failed, err
		})

		// ---------------------------------------------------------------
		// 9. merge the per-file coverage tables

		runStage("coverage-merge", func() (int, int, error) {
			outfh, gw, w, err := outStream(coverageFile, false, opt.CompressionLevel)
			if err != nil {
				return 0, 0, err
			}

			merger := &parallel.Merger{Marker: '#'}
			stats, err := merger.Merge(outfh, covFiles)
			if err != nil {
				return 0, 0, err
			}

			if err = outfh.Flush(); err != nil {
				return 0, 0, err
			}
			if gw != nil {
				if err = gw.Close(); err != nil {
					return 0, 0, err
				}
			}
			if err = w.Close(); err != nil {
				return 0, 0, err
			}

			if opt.Verbose || opt.Log2File {
				log.Infof("%d coverage line(s) saved to %s", stats.Total(), coverageFile)
			}
			return 0, 0, nil
		})

		// ---------------------------------------------------------------
		// final manifest

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("%d units executed across %d batches", totalUnits, totalBatches)
		}

		info.Output = coverageFile
		checksum, err := fileXXH3(coverageFile)
		checkError(errors.Wrap(err, coverageFile))
		info.Checksum = checksum
		info.Elapsed = time.Since(timeStart).String()
		checkError(info.WriteTo(manifestFile))
	},
}

type repdenovoConfig struct {
	MinRepeatFreq   int
	KMin            int
	KMax            int
	KInc            int
	ReadLength      int
	ReadDepth       int
	GenomeLength    int
	MinContigLength int
	Threads         int
	BwaPath         string
	SamtoolsPath    string
	JellyfishPath   string
	VelvetPath      string
	OutputFolder    string
}

var repdenovoConfigTmpl = template.Must(template.New("repdenovo-config").Parse(`MIN_REPEAT_FREQ {{.MinRepeatFreq}}
RANGE_ASM_FREQ_DEC 2
RANGE_ASM_FREQ_GAP 0.8
K_MIN {{.KMin}}
K_MAX {{.KMax}}
K_INC {{.KInc}}
K_DFT {{.KMin}}
READ_LENGTH {{.ReadLength}}
READ_DEPTH {{.ReadDepth}}
THREAD_NUM {{.Threads}}
GENOME_LENGTH {{.GenomeLength}}
MIN_CONTIG_LENGTH {{.MinContigLength}}
ASM_NODE_LENGTH_OFFSET -1
IS_DUPLICATE_REPEATS 0.85
COV_DIFF_CUTOFF 0.5
MIN_SUPPORT_PAIRS 20
MIN_FULLY_MAP_RATIO 0.2
TR_SIMILARITY 0.85
BWA_PATH {{.BwaPath}}
SAMTOOLS_PATH {{.SamtoolsPath}}
JELLYFISH_PATH {{.JellyfishPath}}
VELVET_PATH {{.VelvetPath}}
OUTPUT_FOLDER {{.OutputFolder}}
VERBOSE 1
`))

// parseFastqStats extracts the read count and mean read length from the
// output of fastq-stats (ea-utils).
func parseFastqStats(file string) (int, float64, error) {
	fh, err := os.Open(file)
	if err != nil {
		return 0, 0, err
	}
	defer fh.Close()

	var nReads int
	var meanLen float64
	var haveReads, haveLen bool

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		items := strings.SplitN(scanner.Text(), "\t", 2)
		if len(items) < 2 {
			continue
		}
		switch items[0] {
		case "reads":
			nReads, err = strconv.Atoi(strings.TrimSpace(items[1]))
			if err != nil {
				return 0, 0, fmt.Errorf("invalid reads count: %s", items[1])
			}
			haveReads = true
		case "len mean":
			meanLen, err = strconv.ParseFloat(strings.TrimSpace(items[1]), 64)
			if err != nil {
				return 0, 0, fmt.Errorf("invalid mean length: %s", items[1])
			}
			haveLen = true
		case "len":
			// fixed-length runs have no "len mean" line
			if l, err := strconv.ParseFloat(strings.TrimSpace(items[1]), 64); err == nil && !haveLen {
				meanLen = l
				haveLen = true
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return 0, 0, err
	}
	if !haveReads || !haveLen {
		return 0, 0, fmt.Errorf("no reads/length fields found")
	}
	return nReads, meanLen, nil
}

// countGenomeSize sums the sequence lengths of a FASTA file.
func countGenomeSize(file string) (int, error) {
	fastxReader, err := fastx.NewDefaultReader(file)
	if err != nil {
		return 0, err
	}

	var n int
	for {
		record, err := fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		n += len(record.Seq.Seq)
	}
	return n, nil
}

// contigStats counts the sequences of a FASTA file and their length range.
func contigStats(file string) (int, int, int, int, error) {
	fastxReader, err := fastx.NewDefaultReader(file)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	var n, totalBp, minLen, maxLen int
	for {
		record, err := fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return n, totalBp, minLen, maxLen, err
		}

		l := len(record.Seq.Seq)
		if n == 0 || l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
		n++
		totalBp += l
	}
	return n, totalBp, minLen, maxLen, nil
}

func init() {
	RootCmd.AddCommand(repeatProfileCmd)

	repeatProfileCmd.Flags().StringP("config", "c", "",
		formatFlagUsage(`Run configuration in YAML format. (required)`))
	repeatProfileCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory. (required)`))
	repeatProfileCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))
	repeatProfileCmd.Flags().BoolP("resume", "", false,
		formatFlagUsage(`Continue an interrupted run in the same output directory, skipping stages recorded as done in the run manifest.`))

	repeatProfileCmd.SetUsageTemplate(usageTemplate("[flags] -c <config.yml> -O <out dir> [read files]"))
}

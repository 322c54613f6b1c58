// #input	K	replicate	seed	lnProb	status	output
package main

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shenwei356/breader"
	"github.com/shenwei356/xopen"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		checkError(fmt.Errorf(`usage: %s <runs.tsv> [out file]

runs.tsv format (written by "gtb structure-parallel"):
    #input	K	replicate	seed	lnProb	status	output

`, os.Args[0]))
	}

	file := os.Args[1]

	var outFile string
	if len(os.Args) > 2 {
		outFile = os.Args[2]
	} else {
		outFile = "-"
	}

	// -----------------------------------------------

	numFields := 7
	pool := &sync.Pool{New: func() interface{} {
		tmp := make([]string, numFields)
		return &tmp
	}}

	fn := func(line string) (interface{}, bool, error) {
		if line == "" || line[0] == '#' { // ignoring blank line and comment line
			return "", false, nil
		}
		if line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}

		items := pool.Get().(*[]string)
		defer pool.Put(items)

		run, ok := parseRun(line, numFields, items)
		if !ok {
			return nil, false, nil
		}

		return run, true, nil
	}

	reader, err := breader.NewBufferedReader(file, runtime.NumCPU(), 100, fn)
	checkError(err)

	groups := make(map[int][]float64, 16)
	var data interface{}
	var run Run
	for chunk := range reader.Ch {
		checkError(chunk.Err)

		for _, data = range chunk.Data {
			run = data.(Run)
			groups[run.K] = append(groups[run.K], run.LnProb)
		}
	}

	if len(groups) == 0 {
		checkError(fmt.Errorf("no finished runs with a Ln Prob value in %s", file))
	}

	ks := make([]int, 0, len(groups))
	for k := range groups {
		ks = append(ks, k)
	}
	sort.Ints(ks)

	means := make(map[int]float64, len(ks))
	stdevs := make(map[int]float64, len(ks))
	for _, k := range ks {
		means[k], stdevs[k] = meanStdev(groups[k])
	}

	// -----------------------------------------------

	outfh, err := xopen.Wopen(outFile)
	checkError(err)
	defer outfh.Close()

	outfh.WriteString("K\truns\tmeanLnP\tstdevLnP\tlnPrime\tlnDoublePrime\tdeltaK\n")

	for i, k := range ks {
		lnPrime, lnDoublePrime, deltaK := "NA", "NA", "NA"

		if i > 0 {
			lnPrime = fmt.Sprintf("%.4f", means[k]-means[ks[i-1]])
		}
		if i > 0 && i < len(ks)-1 {
			l2 := math.Abs(means[ks[i+1]] - 2*means[k] + means[ks[i-1]])
			lnDoublePrime = fmt.Sprintf("%.4f", l2)
			if stdevs[k] > 0 {
				deltaK = fmt.Sprintf("%.4f", l2/stdevs[k])
			}
		}

		outfh.WriteString(fmt.Sprintf("%d\t%d\t%.4f\t%.4f\t%s\t%s\t%s\n",
			k, len(groups[k]), means[k], stdevs[k], lnPrime, lnDoublePrime, deltaK,
		))
	}
}

type Run struct {
	Input     string
	K         int
	Replicate int
	LnProb    float64
}

// samples.str	2	1	101	-4356.2000	done	out/K2_rep1_f
// samples.str	2	2	102	-4359.1000	done	out/K2_rep2_f
// samples.str	3	1	104	-4012.7000	done	out/K3_rep1_f
// samples.str	3	2	105	NA	done	out/K3_rep2_f
func parseRun(line string, numFields int, items *[]string) (Run, bool) {
	stringSplitN(line, "\t", numFields, items)
	if len(*items) < numFields {
		checkError(fmt.Errorf("invalid runs.tsv line: %s", line))
	}

	var r Run
	var err error

	r.Input = (*items)[0]

	if (*items)[5] != "done" { // failed runs carry no usable Ln Prob
		return r, false
	}
	if (*items)[4] == "NA" {
		return r, false
	}

	r.K, err = strconv.Atoi((*items)[1])
	if err != nil {
		checkError(fmt.Errorf("fail to parse K: %s", (*items)[1]))
	}
	r.Replicate, err = strconv.Atoi((*items)[2])
	if err != nil {
		checkError(fmt.Errorf("fail to parse replicate: %s", (*items)[2]))
	}
	r.LnProb, err = strconv.ParseFloat((*items)[4], 64)
	if err != nil {
		checkError(fmt.Errorf("fail to parse lnProb: %s", (*items)[4]))
	}

	return r, true
}

func meanStdev(values []float64) (float64, float64) {
	n := len(values)

	if n == 0 {
		return 0, 0
	}

	if n == 1 {
		return values[0], 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	mean := sum / float64(n)

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	return mean, math.Sqrt(variance / float64(n))
}

func checkError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

func stringSplitN(s string, sep string, n int, a *[]string) {
	if a == nil {
		tmp := make([]string, n)
		a = &tmp
	}

	n--
	i := 0
	for i < n {
		m := strings.Index(s, sep)
		if m < 0 {
			break
		}
		(*a)[i] = s[:m]
		s = s[m+len(sep):]
		i++
	}
	(*a)[i] = s

	(*a) = (*a)[:i+1]
}

// Package timing accumulates per-test, per-variant build and run
// durations and writes them out as TSV tables for plotting.
package timing

import (
	"bufio"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// Timings maps test name, then variant name, to the durations observed
// across repetitions. Durations keep execution order; nothing is
// sorted until write-out.
type Timings struct {
	times    map[string]map[string][]time.Duration
	variants []string
}

func New() *Timings {
	return &Timings{times: map[string]map[string][]time.Duration{}}
}

// Add appends one observation for (variant, test).
func (t *Timings) Add(variant, test string, d time.Duration) {
	byVariant, ok := t.times[test]
	if !ok {
		byVariant = map[string][]time.Duration{}
		t.times[test] = byVariant
	}
	byVariant[variant] = append(byVariant[variant], d)

	for _, v := range t.variants {
		if v == variant {
			return
		}
	}
	t.variants = append(t.variants, variant)
	sort.Strings(t.variants)
}

// Get returns the observations for (variant, test) in execution order.
func (t *Timings) Get(variant, test string) []time.Duration {
	return t.times[test][variant]
}

// WriteFile writes the TSV table to path.
func (t *Timings) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo renders the table: one header row, then one row per test in
// sorted name order carrying the plot position and a mean/SD pair per
// variant. Tests without observations for every variant are skipped
// (their plot position is still consumed so surviving rows keep their
// slots).
func (t *Timings) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("TestName\tXPos")
	for _, v := range t.variants {
		bw.WriteString("\t" + v + "Mean\t" + v + "SD")
	}
	bw.WriteString("\n")

	names := make([]string, 0, len(t.times))
	for n := range t.times {
		names = append(names, n)
	}
	sort.Strings(names)

	for xpos, name := range names {
		t.writeRow(bw, name, xpos)
	}
	return bw.Flush()
}

func (t *Timings) writeRow(bw *bufio.Writer, name string, xpos int) {
	byVariant := t.times[name]
	if len(byVariant) != len(t.variants) {
		log.Warn().Str("test", name).Msg("not all timings present, skipping row")
		return
	}
	bw.WriteString(texName(name))
	bw.WriteString("\t" + strconv.Itoa(xpos))
	for _, v := range t.variants {
		secs := seconds(byVariant[v])
		bw.WriteString("\t" + formatFloat(mean(secs)))
		bw.WriteString("\t" + formatFloat(stddev(secs)))
	}
	bw.WriteString("\n")
}

// texName escapes the test name for direct inclusion in a TeX table.
func texName(name string) string {
	return `\texttt{` + strings.ReplaceAll(name, "_", `\_`) + `}`
}

func seconds(ds []time.Duration) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Seconds()
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation, matching what the plots
// have always shown.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

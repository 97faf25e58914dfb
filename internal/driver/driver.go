// Package driver sequences the shuffled execution matrix: build, run,
// verify, tally.
package driver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/TwiN/go-color"
	"github.com/phuslu/log"

	"github.com/chrisdiamand/ClangCrunch/internal/invoke"
	"github.com/chrisdiamand/ClangCrunch/internal/matrix"
	"github.com/chrisdiamand/ClangCrunch/internal/registry"
	"github.com/chrisdiamand/ClangCrunch/internal/summary"
	"github.com/chrisdiamand/ClangCrunch/internal/testcase"
	"github.com/chrisdiamand/ClangCrunch/internal/timing"
	"github.com/chrisdiamand/ClangCrunch/internal/toolchain"
)

// Executor runs the two subprocess stages of a case. The indirection
// exists so the loop can be exercised without spawning real tools.
type Executor interface {
	Build(ctx context.Context, c testcase.Case, v toolchain.Variant) (invoke.Result, error)
	Run(ctx context.Context, c testcase.Case) (invoke.Result, error)
}

// Driver owns one matrix run.
type Driver struct {
	Registry   *registry.Registry
	Exec       Executor
	BuildTimes *timing.Timings
	RunTimes   *timing.Timings
	Stdout     io.Writer
}

// Tally is the aggregate outcome of a matrix run. Failure lists hold
// variant:test identifiers and are sorted before reporting.
type Tally struct {
	Passed           int
	FailedBuild      []string
	FailedReturncode []string
	FailedSummary    []string
	Invalid          int
	Cancelled        int
	Total            int
}

// RunMatrix executes entries one at a time, in order. Each entry
// short-circuits at its first failing stage; failures accumulate into
// the tally and the loop moves on. Cancelling ctx stops new work and
// counts everything not reached as cancelled.
func (d *Driver) RunMatrix(ctx context.Context, entries []matrix.Entry) Tally {
	t := Tally{Total: len(entries)}
	processed := 0

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !d.runOne(ctx, e, &t) {
			// Interrupted mid-stage; the entry never reached a verdict.
			break
		}
		processed++
	}

	t.Cancelled = t.Total - processed
	sort.Strings(t.FailedBuild)
	sort.Strings(t.FailedReturncode)
	sort.Strings(t.FailedSummary)
	return t
}

// runOne returns true when the entry ran to a verdict, false when it
// was cut short by cancellation.
func (d *Driver) runOne(ctx context.Context, e matrix.Entry, t *Tally) bool {
	id := e.ID()

	c, ok := d.Registry.Lookup(e.Test)
	if !ok {
		log.Error().Str("test", e.Test).Msg("no such test")
		t.Invalid++
		return true
	}

	buildRes, err := d.Exec.Build(ctx, c, e.Variant)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Error().Err(err).Str("id", id).Msg("build stage failed to execute")
		t.FailedBuild = append(t.FailedBuild, id)
		return true
	}
	if buildRes.ExitCode != 0 {
		t.FailedBuild = append(t.FailedBuild, id)
		return true
	}

	runRes, err := d.Exec.Run(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Error().Err(err).Str("id", id).Msg("run stage failed to execute")
		t.FailedReturncode = append(t.FailedReturncode, id)
		return true
	}

	if e.Variant.CheckSummary {
		if !c.ShouldFail() && runRes.ExitCode != 0 {
			t.FailedReturncode = append(t.FailedReturncode, id)
			return true
		}
		passed, mismatches := summary.Check(c.Expected(), summary.Extract(runRes.Stderr))
		if !passed {
			for _, m := range mismatches {
				fmt.Fprintln(d.Stdout, color.InRed("error: "+m.String()))
			}
			t.FailedSummary = append(t.FailedSummary, id)
			return true
		}
	}

	boxMessage(d.Stdout, "Passed test '"+id+"'")
	d.BuildTimes.Add(e.Variant.Name, e.Test, buildRes.Duration)
	d.RunTimes.Add(e.Variant.Name, e.Test, runRes.Duration)
	t.Passed++
	return true
}

func boxMessage(w io.Writer, msg string) {
	border := "+" + strings.Repeat("-", len(msg)+2) + "+"
	fmt.Fprintln(w, border)
	fmt.Fprintln(w, "| "+color.InGreen(msg)+" |")
	fmt.Fprintln(w, border)
	fmt.Fprintln(w)
}

// Write renders the fixed-order summary tally.
func (t Tally) Write(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "    Passed              : %d\n", t.Passed)
	writeFailed(w, "Failed (build)      ", t.FailedBuild)
	writeFailed(w, "Failed (returncode) ", t.FailedReturncode)
	writeFailed(w, "Failed (summary)    ", t.FailedSummary)
	fmt.Fprintf(w, "    Invalid             : %d\n", t.Invalid)
	fmt.Fprintf(w, "    Cancelled           : %d\n", t.Cancelled)
	fmt.Fprintf(w, "    Total               : %d\n", t.Total)
}

func writeFailed(w io.Writer, label string, ids []string) {
	line := fmt.Sprintf("    %s: %d", label, len(ids))
	if len(ids) > 0 {
		line = color.InRed(line) + " " + strings.Join(ids, " ")
	}
	fmt.Fprintln(w, line)
}

// Failures reports how many entries ended in any failure category.
func (t Tally) Failures() int {
	return len(t.FailedBuild) + len(t.FailedReturncode) + len(t.FailedSummary) + t.Invalid
}

// ExitCode maps the tally onto the process exit status: 130 after an
// interrupt, 1 when anything failed, 0 for a clean run.
func (t Tally) ExitCode() int {
	if t.Cancelled > 0 {
		return 130
	}
	if t.Failures() > 0 {
		return 1
	}
	return 0
}

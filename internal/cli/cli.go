// Package cli wires configuration, registry, matrix and driver into
// the crunchtest command surface.
package cli

import (
	"context"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sys/unix"

	"github.com/chrisdiamand/ClangCrunch/internal/config"
	"github.com/chrisdiamand/ClangCrunch/internal/driver"
	"github.com/chrisdiamand/ClangCrunch/internal/lock"
	"github.com/chrisdiamand/ClangCrunch/internal/matrix"
	"github.com/chrisdiamand/ClangCrunch/internal/registry"
	"github.com/chrisdiamand/ClangCrunch/internal/testcase"
	"github.com/chrisdiamand/ClangCrunch/internal/timing"
	"github.com/chrisdiamand/ClangCrunch/internal/toolchain"
)

// Keywords recognized alongside selectors.
const (
	KeywordClean   = "CLEAN"
	KeywordZshComp = "ZSHCOMP"
)

// cannedRepeats are offered to shell completion so the common -rN
// spellings complete like test names do.
var cannedRepeats = []string{"-r1", "-r2", "-r3", "-r4", "-r5", "-r10"}

// Runner holds the injectable surface of the command. Zero values are
// filled with production defaults by Run.
type Runner struct {
	Version string
	Stdout  io.Writer
	Stderr  io.Writer

	// TestDir is where the sample corpus lives; build and timing
	// artifacts land there too.
	TestDir    string
	ConfigPath string

	Exec driver.Executor
	Rng  *mathrand.Rand

	// LoadRegistry defaults to the embedded corpus.
	LoadRegistry func(config.Config) (*registry.Registry, error)
}

// Run executes one invocation and returns the process exit code.
func (r Runner) Run(args []string) int {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.TestDir == "" {
		r.TestDir = "."
	}
	if r.ConfigPath == "" {
		r.ConfigPath = filepath.Join(r.TestDir, "crunchtest.yaml")
	}
	if r.Exec == nil {
		r.Exec = testcase.Exec{}
	}
	if r.LoadRegistry == nil {
		r.LoadRegistry = registry.Builtin
	}

	r.setupLogging()
	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Str("version", r.Version).Msg("crunchtest starting")

	cfg, err := config.Discover(r.TestDir, r.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "CRUNCH_E_CONFIG: %v\n", err)
		return 2
	}

	reg, err := r.LoadRegistry(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "CRUNCH_E_MANIFEST: %v\n", err)
		return 2
	}
	variants := toolchain.Builtin()

	if len(args) == 0 || hasHelpArg(args) {
		r.printUsage(reg.Names())
		return 0
	}
	if containsArg(args, KeywordZshComp) {
		for _, line := range completions(reg.Names()) {
			fmt.Fprintln(r.Stdout, line)
		}
		return 0
	}
	if containsArg(args, KeywordClean) {
		return r.cleanAll(reg)
	}

	sel, err := matrix.Select(reg.Names(), variants, args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "CRUNCH_E_SELECTION: %v\n", err)
		return 2
	}
	entries := matrix.Expand(sel, r.Rng)
	if len(entries) == 0 {
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	buildTimes := timing.New()
	runTimes := timing.New()
	d := &driver.Driver{
		Registry:   reg,
		Exec:       r.Exec,
		BuildTimes: buildTimes,
		RunTimes:   runTimes,
		Stdout:     r.Stdout,
	}

	var tally driver.Tally
	err = lock.WithTestDir(cfg.TestDir, 5*time.Second, func() error {
		tally = d.RunMatrix(ctx, entries)
		tally.Write(r.Stdout)

		// Partial timing data is still worth keeping after an interrupt.
		if err := buildTimes.WriteFile(filepath.Join(cfg.TestDir, "buildTimes.dat")); err != nil {
			log.Error().Err(err).Msg("writing build timings")
		}
		if err := runTimes.WriteFile(filepath.Join(cfg.TestDir, "runTimes.dat")); err != nil {
			log.Error().Err(err).Msg("writing run timings")
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "CRUNCH_E_LOCKED: %v\n", err)
		return 2
	}

	return tally.ExitCode()
}

func (r Runner) setupLogging() {
	level := log.InfoLevel
	if os.Getenv("CRUNCHTEST_DEBUG") != "" {
		level = log.DebugLevel
	}
	log.DefaultLogger = log.Logger{
		Level:  level,
		Writer: &log.ConsoleWriter{Writer: r.Stderr, ColorOutput: true},
	}
}

func (r Runner) cleanAll(reg *registry.Registry) int {
	for _, name := range reg.Names() {
		c, _ := reg.Lookup(name)
		if err := testcase.Clean(c); err != nil {
			fmt.Fprintf(r.Stderr, "CRUNCH_E_CLEAN: %v\n", err)
			return 1
		}
	}
	if err := testcase.CleanTree(r.TestDir); err != nil {
		fmt.Fprintf(r.Stderr, "CRUNCH_E_CLEAN: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) printUsage(names []string) {
	fmt.Fprintln(r.Stdout, "Usage: crunchtest TEST ...")
	fmt.Fprintln(r.Stdout, "Available tests:")
	for _, line := range completions(names) {
		fmt.Fprintln(r.Stdout, "    "+line)
	}
}

// completions lists everything the shell should offer: test names, the
// bulk keywords, and the canned repetition flags.
func completions(names []string) []string {
	out := make([]string, 0, len(names)+2+len(cannedRepeats))
	out = append(out, names...)
	out = append(out, matrix.BulkAll, KeywordClean)
	sort.Strings(out)
	return append(out, cannedRepeats...)
}

func hasHelpArg(args []string) bool {
	return containsArg(args, "-h") || containsArg(args, "--help") || containsArg(args, "help")
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

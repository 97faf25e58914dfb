// Package testcase models one unit of work for the harness: a sample
// program with a build step, a run step and an expected counter set.
package testcase

import (
	"path/filepath"
	"strings"

	"github.com/chrisdiamand/ClangCrunch/internal/config"
	"github.com/chrisdiamand/ClangCrunch/internal/summary"
	"github.com/chrisdiamand/ClangCrunch/internal/toolchain"
)

// Case is the unit the driver executes. Implementations own their
// command composition, environment overlays and artifact list; the
// driver only sequences the stages.
type Case interface {
	Name() string
	Dir() string

	BuildArgv(v toolchain.Variant) []string
	BuildEnv(v toolchain.Variant) map[string]string

	RunArgv() []string
	RunEnv() map[string]string

	// CleanPaths lists every artifact this case may have produced.
	// All of them are removed before each build.
	CleanPaths() []string

	ShouldFail() bool
	Expected() summary.CounterSet
}

// Kind selects which toolchain front-end a direct-compile case goes
// through.
type Kind int

const (
	KindAllocs Kind = iota
	KindCrunch
)

// CleanExts is the suffix list of generated artifacts, applied to each
// base output path during cleanup.
var CleanExts = []string{
	"-allocsites.c", "-allocsites.so", "-types.c", "-types.c.log.gz",
	"-types.so", ".allocs", ".allocs.rej", ".allocstubs.c",
	".allocstubs.i", ".allocstubs.o", ".cil.c", ".cil.i", ".cil.s",
	".i", ".i.allocs", ".makelog", ".o", ".o.fixuplog", ".objallocs",
	".s", ".srcallocs", ".srcallocs.rej",
}

// Spec carries the declarative part of a direct-compile case.
type Spec struct {
	// File is the source path relative to the test directory.
	File     string
	Kind     Kind
	Flags    []string
	BuildEnv map[string]string
	RunEnv   map[string]string
	Fail     bool
	Summary  summary.CounterSet
}

// Direct is a single-source-file case compiled straight through a
// variant's wrapper command.
type Direct struct {
	cfg      config.Config
	name     string
	srcRel   string
	srcPath  string
	outPath  string
	kind     Kind
	flags    []string
	buildEnv map[string]string
	runEnv   map[string]string
	fail     bool
	expected summary.CounterSet
}

func NewDirect(cfg config.Config, s Spec) *Direct {
	src := filepath.Join(cfg.TestDir, s.File)
	return &Direct{
		cfg:      cfg,
		name:     trimExt(s.File),
		srcRel:   s.File,
		srcPath:  src,
		outPath:  trimExt(src),
		kind:     s.Kind,
		flags:    s.Flags,
		buildEnv: s.BuildEnv,
		runEnv:   s.RunEnv,
		fail:     s.Fail,
		expected: s.Summary,
	}
}

func (c *Direct) Name() string { return c.name }
func (c *Direct) Dir() string  { return c.cfg.TestDir }

func (c *Direct) BuildArgv(v toolchain.Variant) []string {
	var argv []string
	switch c.kind {
	case KindCrunch:
		argv = append(argv, v.CrunchCmd...)
		argv = append(argv, "-D_GNU_SOURCE", "-std=c99", "-DUSE_STARTUP_BRK")
		argv = append(argv, "-fno-eliminate-unused-debug-types")
		for _, inc := range c.cfg.CrunchInclude() {
			argv = append(argv, "-I"+inc)
		}
		argv = append(argv, c.flags...)
		// crunchcc loses allocsites metadata when handed an absolute
		// source path, so crunch builds use the test-dir-relative one.
		argv = append(argv, c.srcRel, "-o", c.outPath)
	default:
		argv = append(argv, v.AllocsCmd...)
		argv = append(argv, "-std=c99", "-DUSE_STARTUP_BRK")
		argv = append(argv, c.flags...)
		argv = append(argv, c.srcPath, "-o", c.outPath)
	}
	return argv
}

func (c *Direct) BuildEnv(toolchain.Variant) map[string]string {
	return c.buildEnv
}

func (c *Direct) RunArgv() []string { return []string{c.outPath} }

func (c *Direct) RunEnv() map[string]string {
	preload := c.cfg.AllocsPreload()
	if c.kind == KindCrunch {
		preload = c.cfg.CrunchPreload()
	}
	env := map[string]string{}
	for k, v := range c.runEnv {
		env[k] = v
	}
	env["LD_PRELOAD"] = preload
	return env
}

func (c *Direct) CleanPaths() []string {
	var paths []string
	for _, e := range CleanExts {
		paths = append(paths, c.outPath+e)
	}
	paths = append(paths, c.outPath)
	// Allocsites metadata mirrors the binary's absolute path under the
	// allocsites base.
	mirror := filepath.Join(c.cfg.AllocsitesBase, strings.TrimPrefix(c.outPath, string(filepath.Separator)))
	for _, e := range CleanExts {
		paths = append(paths, mirror+e)
	}
	return paths
}

func (c *Direct) ShouldFail() bool             { return c.fail }
func (c *Direct) Expected() summary.CounterSet { return c.expected }

// Makefile is a case driven by a project's own build recipe. The
// harness only picks the compiler; cleanup is the makefile's problem.
type Makefile struct {
	cfg      config.Config
	dir      string
	expected summary.CounterSet
}

func NewMakefile(cfg config.Config, dir string, expected summary.CounterSet) *Makefile {
	return &Makefile{cfg: cfg, dir: dir, expected: expected}
}

func (c *Makefile) Name() string { return c.dir }
func (c *Makefile) Dir() string  { return c.cfg.TestDir }

func (c *Makefile) BuildArgv(toolchain.Variant) []string {
	return []string{"make", "-C", filepath.Join(c.cfg.TestDir, c.dir)}
}

func (c *Makefile) BuildEnv(v toolchain.Variant) map[string]string {
	return map[string]string{"CC": strings.Join(v.CrunchCmd, " ")}
}

func (c *Makefile) RunArgv() []string {
	return []string{filepath.Join(c.cfg.TestDir, c.dir, filepath.Base(c.dir))}
}

func (c *Makefile) RunEnv() map[string]string {
	return map[string]string{"LD_PRELOAD": c.cfg.CrunchPreload()}
}

func (c *Makefile) CleanPaths() []string { return nil }

func (c *Makefile) ShouldFail() bool             { return false }
func (c *Makefile) Expected() summary.CounterSet { return c.expected }

func trimExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}

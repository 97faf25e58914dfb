package registry

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/chrisdiamand/ClangCrunch/internal/config"
	"github.com/chrisdiamand/ClangCrunch/internal/summary"
	"github.com/chrisdiamand/ClangCrunch/internal/testcase"
)

type manifest struct {
	Version int             `yaml:"version" validate:"required,eq=1"`
	Tests   []manifestEntry `yaml:"tests" validate:"required,min=1,dive"`
}

// manifestEntry describes one test. Either File (direct compile) or
// Dir (makefile project) must be set.
type manifestEntry struct {
	File     string            `yaml:"file"`
	Dir      string            `yaml:"dir"`
	Kind     string            `yaml:"kind" validate:"omitempty,oneof=allocs crunch"`
	Flags    []string          `yaml:"flags"`
	BuildEnv map[string]string `yaml:"buildEnv"`
	RunEnv   map[string]string `yaml:"runEnv"`
	Fail     bool              `yaml:"fail"`
	Summary  map[string]int    `yaml:"summary"`
}

// FlagExpander resolves a pkg-config package name into compiler flags.
type FlagExpander func(pkg string) ([]string, error)

// PkgConfig shells out to pkg-config for the package's cflags and libs.
func PkgConfig(pkg string) ([]string, error) {
	out, err := exec.Command("pkg-config", "--cflags", "--libs", pkg).Output()
	if err != nil {
		return nil, fmt.Errorf("pkg-config %s: %w", pkg, err)
	}
	return strings.Fields(string(out)), nil
}

// LoadManifest parses raw YAML into a populated registry. Flag entries
// of the form $(pkg-config NAME) are expanded in place via expand.
func LoadManifest(cfg config.Config, raw []byte, expand FlagExpander) (*Registry, error) {
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid test manifest: %w", err)
	}
	if err := validator.New().Struct(m); err != nil {
		return nil, fmt.Errorf("invalid test manifest: %w", err)
	}

	reg := New()
	for i, e := range m.Tests {
		c, err := buildCase(cfg, e, expand)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}
		reg.Add(c)
	}
	return reg, nil
}

func buildCase(cfg config.Config, e manifestEntry, expand FlagExpander) (testcase.Case, error) {
	expected, err := parseSummary(e.Summary)
	if err != nil {
		return nil, err
	}

	if e.Dir != "" {
		if e.File != "" {
			return nil, fmt.Errorf("%s: file and dir are mutually exclusive", e.Dir)
		}
		return testcase.NewMakefile(cfg, e.Dir, expected), nil
	}
	if e.File == "" {
		return nil, fmt.Errorf("entry needs either file or dir")
	}

	flags, err := expandFlags(e.Flags, expand)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.File, err)
	}

	return testcase.NewDirect(cfg, testcase.Spec{
		File:     e.File,
		Kind:     kindFor(e),
		Flags:    flags,
		BuildEnv: e.BuildEnv,
		RunEnv:   e.RunEnv,
		Fail:     e.Fail,
		Summary:  expected,
	}), nil
}

// kindFor defaults the toolchain front-end from the corpus layout:
// sources under allocs/ exercise liballocs alone, everything else goes
// through the full crunch pipeline.
func kindFor(e manifestEntry) testcase.Kind {
	switch e.Kind {
	case "allocs":
		return testcase.KindAllocs
	case "crunch":
		return testcase.KindCrunch
	}
	if strings.HasPrefix(e.File, "allocs/") {
		return testcase.KindAllocs
	}
	return testcase.KindCrunch
}

func parseSummary(raw map[string]int) (summary.CounterSet, error) {
	out := summary.CounterSet{}
	for k, v := range raw {
		key := summary.Key(k)
		if !summary.ValidKey(key) {
			return nil, fmt.Errorf("unknown counter key %q", k)
		}
		if v < 0 {
			return nil, fmt.Errorf("counter %q: negative value %d", k, v)
		}
		out[key] = v
	}
	return out, nil
}

func expandFlags(flags []string, expand FlagExpander) ([]string, error) {
	var out []string
	for _, f := range flags {
		pkg, ok := cutExpansion(f)
		if !ok {
			out = append(out, f)
			continue
		}
		if expand == nil {
			return nil, fmt.Errorf("no expander for %q", f)
		}
		extra, err := expand(pkg)
		if err != nil {
			return nil, err
		}
		out = append(out, extra...)
	}
	return out, nil
}

func cutExpansion(f string) (string, bool) {
	inner, ok := strings.CutPrefix(f, "$(pkg-config ")
	if !ok {
		return "", false
	}
	pkg, ok := strings.CutSuffix(inner, ")")
	if !ok || strings.TrimSpace(pkg) == "" {
		return "", false
	}
	return strings.TrimSpace(pkg), true
}

// Package toolchain enumerates the compiler wrapper configurations the
// harness can drive a test through.
package toolchain

import (
	"fmt"
	"sort"
)

// Variant is one toolchain configuration: the command prefixes used to
// build allocs- and crunch-kind tests, and whether a successful run is
// expected to exit zero with a verifiable summary. Variants are values;
// they are built once at startup and never mutated.
type Variant struct {
	Name string

	// AllocsCmd and CrunchCmd are build-command prefixes. Flags, the
	// source path and the output path are appended per test.
	AllocsCmd []string
	CrunchCmd []string

	// CheckSummary is false for baseline compilers that link against the
	// runtime but perform no instrumentation: their binaries run, but
	// exit status and counters are not validated.
	CheckSummary bool
}

// Builtin returns the stock variant table.
func Builtin() *Table {
	base := []string{"clang", "-ldl", "-lallocs"}
	t := NewTable()
	t.Add(Variant{
		Name:         "new",
		AllocsCmd:    []string{"clangallocscc"},
		CrunchCmd:    []string{"clangcrunchcc"},
		CheckSummary: true,
	})
	// Stock toolchain also needs -gstrict-dwarf under GCC.
	t.Add(Variant{
		Name:         "stock",
		AllocsCmd:    []string{"allocscc"},
		CrunchCmd:    []string{"crunchcc"},
		CheckSummary: true,
	})
	t.Add(Variant{
		Name:      "base",
		AllocsCmd: append(append([]string{}, base...), "-O0"),
		CrunchCmd: append(append([]string{}, base...), "-O0"),
	})
	t.Add(Variant{
		Name:      "baseO4",
		AllocsCmd: append(append([]string{}, base...), "-O4"),
		CrunchCmd: append(append([]string{}, base...), "-O4"),
	})
	return t
}

// Table holds the enumerated variants, addressable by name.
type Table struct {
	byName map[string]Variant
}

func NewTable() *Table {
	return &Table{byName: map[string]Variant{}}
}

func (t *Table) Add(v Variant) error {
	if v.Name == "" {
		return fmt.Errorf("variant has no name")
	}
	if _, exists := t.byName[v.Name]; exists {
		return fmt.Errorf("variant %q already registered", v.Name)
	}
	t.byName[v.Name] = v
	return nil
}

func (t *Table) Lookup(name string) (Variant, bool) {
	v, ok := t.byName[name]
	return v, ok
}

// Names returns all variant names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every variant, ordered by name.
func (t *Table) All() []Variant {
	var out []Variant
	for _, n := range t.Names() {
		out = append(out, t.byName[n])
	}
	return out
}

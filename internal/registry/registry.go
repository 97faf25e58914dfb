// Package registry holds the named test corpus and builds it from the
// embedded manifest.
package registry

import (
	"sort"

	"github.com/phuslu/log"

	"github.com/chrisdiamand/ClangCrunch/internal/testcase"
)

// Registry maps unique test names to cases. Registration conflicts are
// reported and the later case dropped; nothing ever crashes over a
// duplicate name.
type Registry struct {
	cases map[string]testcase.Case
	dups  []string
}

func New() *Registry {
	return &Registry{cases: map[string]testcase.Case{}}
}

// Add registers c under its name. It returns false when the name is
// already taken, in which case c is discarded.
func (r *Registry) Add(c testcase.Case) bool {
	name := c.Name()
	if _, exists := r.cases[name]; exists {
		log.Warn().Str("test", name).Msg("test already exists, dropping duplicate registration")
		r.dups = append(r.dups, name)
		return false
	}
	r.cases[name] = c
	return true
}

func (r *Registry) Lookup(name string) (testcase.Case, bool) {
	c, ok := r.cases[name]
	return c, ok
}

// Names returns every registered test name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cases))
	for n := range r.cases {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int { return len(r.cases) }

// Duplicates lists names that were registered more than once.
func (r *Registry) Duplicates() []string { return r.dups }

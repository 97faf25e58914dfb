// Package matrix expands selectors over the test registry and variant
// table into the shuffled (variant, test) execution list.
package matrix

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/chrisdiamand/ClangCrunch/internal/toolchain"
)

// BulkAll selects every registered test outside the quarantine
// namespace.
const BulkAll = "ALL"

// QuarantinePrefix marks known-broken tests that BulkAll skips. They
// still run when named explicitly or matched by their own prefix.
const QuarantinePrefix = "broken/"

// ErrNoMatch aborts the whole invocation: a selector that matches
// nothing means the operator asked for something that does not exist.
var ErrNoMatch = errors.New("no tests match")

// Entry is one scheduled execution.
type Entry struct {
	Variant toolchain.Variant
	Test    string
}

func (e Entry) ID() string { return e.Variant.Name + ":" + e.Test }

// Selection is the resolved but not yet expanded matrix.
type Selection struct {
	Entries []Entry
	Repeats int
}

// Select resolves selector strings against the registered test names
// and variant table. Each selector is a repetition directive (-rN), a
// variant name, the ALL keyword, or a test-name prefix. With no
// variant selector every variant is used. Entries come back in a
// deterministic order; Expand shuffles.
func Select(names []string, variants *toolchain.Table, selectors []string) (Selection, error) {
	repeats := 1
	testNames := map[string]bool{}
	var picked []toolchain.Variant

	for _, arg := range selectors {
		if n, ok := strings.CutPrefix(arg, "-r"); ok {
			parsed, err := strconv.Atoi(n)
			if err != nil || parsed < 0 {
				return Selection{}, fmt.Errorf("invalid repetition count %q", arg)
			}
			repeats = parsed
			continue
		}
		if v, ok := variants.Lookup(arg); ok {
			picked = append(picked, v)
			continue
		}
		if arg == BulkAll {
			for _, n := range names {
				if !strings.HasPrefix(n, QuarantinePrefix) {
					testNames[n] = true
				}
			}
			continue
		}
		matched := 0
		for _, n := range names {
			if strings.HasPrefix(n, arg) {
				testNames[n] = true
				matched++
			}
		}
		if matched == 0 {
			return Selection{}, fmt.Errorf("%w %q", ErrNoMatch, arg)
		}
	}

	if len(picked) == 0 {
		picked = variants.All()
	} else {
		sort.Slice(picked, func(i, j int) bool { return picked[i].Name < picked[j].Name })
	}

	selected := make([]string, 0, len(testNames))
	for n := range testNames {
		selected = append(selected, n)
	}
	sort.Strings(selected)

	var entries []Entry
	for _, v := range picked {
		for _, n := range selected {
			entries = append(entries, Entry{Variant: v, Test: n})
		}
	}
	return Selection{Entries: entries, Repeats: repeats}, nil
}

// Expand replicates the selection by its repetition count and shuffles
// the combined list. Shuffling is deliberate: a fixed order would let
// state leak between adjacent runs of the same test (shared toolchain
// caches) go unnoticed. Pass a nil rng for a randomly seeded one.
func Expand(sel Selection, rng *mathrand.Rand) []Entry {
	if rng == nil {
		rng = mathrand.New(mathrand.NewPCG(cryptoSeed(), cryptoSeed()))
	}
	out := make([]Entry, 0, len(sel.Entries)*sel.Repeats)
	for i := 0; i < sel.Repeats; i++ {
		out = append(out, sel.Entries...)
	}
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func cryptoSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b[:])
}

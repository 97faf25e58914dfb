package summary

import (
	"fmt"
	"sort"
)

// MismatchKind classifies one expectation failure.
type MismatchKind int

const (
	// MismatchMissing: the expectation names a counter the run never reported.
	MismatchMissing MismatchKind = iota
	// MismatchValue: the counter was reported with the wrong value.
	MismatchValue
	// MismatchUnexpected: a counter outside the expectation was nonzero.
	MismatchUnexpected
)

// Mismatch records one offending counter with both sides of the comparison.
type Mismatch struct {
	Key      Key
	Kind     MismatchKind
	Expected int
	Actual   int
}

func (m Mismatch) String() string {
	switch m.Kind {
	case MismatchMissing:
		return fmt.Sprintf("summary value %s not reported, should be %d", m.Key, m.Expected)
	case MismatchUnexpected:
		return fmt.Sprintf("summary value %s should be %d, got %d", m.Key, 0, m.Actual)
	default:
		return fmt.Sprintf("summary value %s should be %d, got %d", m.Key, m.Expected, m.Actual)
	}
}

// Check compares an extracted counter set against an expectation.
// Every key the expectation names must be present with exactly the
// expected value, and every extracted key outside the expectation must
// be zero. The check passes iff no mismatch is recorded. Mismatches
// come back sorted by key so reports are stable.
func Check(expected, actual CounterSet) (bool, []Mismatch) {
	var mismatches []Mismatch

	for _, k := range sortedKeys(expected) {
		want := expected[k]
		got, ok := actual[k]
		if !ok {
			mismatches = append(mismatches, Mismatch{Key: k, Kind: MismatchMissing, Expected: want})
			continue
		}
		if got != want {
			mismatches = append(mismatches, Mismatch{Key: k, Kind: MismatchValue, Expected: want, Actual: got})
		}
	}

	for _, k := range sortedKeys(actual) {
		if _, ok := expected[k]; ok {
			continue
		}
		if actual[k] != 0 {
			mismatches = append(mismatches, Mismatch{Key: k, Kind: MismatchUnexpected, Actual: actual[k]})
		}
	}

	return len(mismatches) == 0, mismatches
}

func sortedKeys(cs CounterSet) []Key {
	keys := make([]Key, 0, len(cs))
	for k := range cs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		name string
		line string
		key  Key
		val  int
		ok   bool
	}{
		{"colon and space", "checks begun: 2", ChecksBegun, 2, true},
		{"no colon", "checks begun 7", ChecksBegun, 7, true},
		{"tab separator", "queries handled by heap case:\t14", QueriesHeap, 14, true},
		{"trailing junk ignored", "checks remaining: 3 (of 5)", ChecksRemaining, 3, true},
		{"no whitespace after colon", "checks begun:2", "", 0, false},
		{"no value", "checks begun:", "", 0, false},
		{"unrelated line", "libcrunch initialized", "", 0, false},
		{"empty", "", "", 0, false},
		{"negative value rejected", "checks begun: -1", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, v, ok := ParseLine(tc.line)
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.key, k)
				assert.Equal(t, tc.val, v)
			}
		})
	}
}

func TestParseLine_FirstPatternWins(t *testing.T) {
	// "checks failed inside allocation functions" is listed ahead of
	// "checks failed otherwise"; a line matching the former must not be
	// absorbed by any later pattern.
	k, v, ok := ParseLine("checks failed inside allocation functions: 4")
	require.True(t, ok)
	assert.Equal(t, ChecksFailedAlloc, k)
	assert.Equal(t, 4, v)

	k, _, ok = ParseLine("checks failed otherwise: 1")
	require.True(t, ok)
	assert.Equal(t, ChecksFailedOther, k)
}

func TestExtract(t *testing.T) {
	text := "checks begun: 2\nqueries handled by heap case: 1\n"
	got := Extract(text)
	assert.Equal(t, CounterSet{ChecksBegun: 2, QueriesHeap: 1}, got)
}

func TestExtract_LastLineWins(t *testing.T) {
	text := "checks begun: 2\nsome noise\nchecks begun: 5\n"
	got := Extract(text)
	assert.Equal(t, CounterSet{ChecksBegun: 5}, got)
}

func TestExtract_TrimsAndTolerates(t *testing.T) {
	got := Extract("   checks remaining:\t9\t\n\n\ngarbage\n")
	assert.Equal(t, CounterSet{ChecksRemaining: 9}, got)

	assert.Empty(t, Extract(""))
}

func TestExtract_Idempotent(t *testing.T) {
	text := "checks begun: 1003\nqueries handled by heap case: 339\nchecks remaining: 1003\n"
	assert.Equal(t, Extract(text), Extract(text))
}

func TestCheck_Pass(t *testing.T) {
	actual := Extract("checks begun: 2\nqueries handled by heap case: 1\n")
	ok, mismatches := Check(CounterSet{ChecksBegun: 2, QueriesHeap: 1}, actual)
	assert.True(t, ok)
	assert.Empty(t, mismatches)
}

func TestCheck_UnexpectedNonzero(t *testing.T) {
	actual := Extract("checks begun: 2\nqueries handled by heap case: 1\n")
	ok, mismatches := Check(CounterSet{ChecksBegun: 2}, actual)
	require.False(t, ok)
	require.Len(t, mismatches, 1)
	assert.Equal(t, QueriesHeap, mismatches[0].Key)
	assert.Equal(t, MismatchUnexpected, mismatches[0].Kind)
	assert.Equal(t, 1, mismatches[0].Actual)
}

func TestCheck_Missing(t *testing.T) {
	actual := Extract("queries handled by stack case: 0\n")
	ok, mismatches := Check(CounterSet{ChecksBegun: 1}, actual)
	require.False(t, ok)
	require.Len(t, mismatches, 1)
	assert.Equal(t, ChecksBegun, mismatches[0].Key)
	assert.Equal(t, MismatchMissing, mismatches[0].Kind)
	assert.Equal(t, 1, mismatches[0].Expected)
}

func TestCheck_ValueMismatch(t *testing.T) {
	ok, mismatches := Check(CounterSet{ChecksBegun: 2}, CounterSet{ChecksBegun: 3})
	require.False(t, ok)
	require.Len(t, mismatches, 1)
	assert.Equal(t, MismatchValue, mismatches[0].Kind)
	assert.Equal(t, 2, mismatches[0].Expected)
	assert.Equal(t, 3, mismatches[0].Actual)
}

func TestCheck_ImplicitZeroTolerated(t *testing.T) {
	// Counters outside the expectation are fine as long as they are zero.
	ok, mismatches := Check(CounterSet{}, CounterSet{QueriesStack: 0, QueriesStatic: 0})
	assert.True(t, ok)
	assert.Empty(t, mismatches)
}

func TestCheck_MismatchOrderStable(t *testing.T) {
	expected := CounterSet{ChecksBegun: 1, ChecksRemaining: 1}
	actual := CounterSet{QueriesHeap: 2, QueriesStack: 3}
	_, first := Check(expected, actual)
	_, second := Check(expected, actual)
	require.Equal(t, first, second)
	// Expected-side mismatches come first, each side sorted by key.
	require.Len(t, first, 4)
	assert.Equal(t, ChecksBegun, first[0].Key)
	assert.Equal(t, ChecksRemaining, first[1].Key)
	assert.Equal(t, QueriesHeap, first[2].Key)
	assert.Equal(t, QueriesStack, first[3].Key)
}

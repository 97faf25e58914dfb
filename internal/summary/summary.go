// Package summary turns the diagnostic chatter that libcrunch and
// liballocs print on stderr into a structured counter set, and checks
// that set against a test's expectations.
package summary

import "strings"

// Key names one diagnostic counter. The vocabulary is closed: extraction
// only ever produces the keys declared below.
type Key string

const (
	ChecksBegun           Key = "c.begun"
	ChecksAbortedTypename Key = "c.aborted_typename"
	ChecksRemaining       Key = "c.remaining"
	ChecksLazyHeap        Key = "c.lazy_heap"
	ChecksFailedAlloc     Key = "c.failed_alloc"
	ChecksFailedOther     Key = "c.failed_other"
	ChecksFailedSuppress  Key = "c.failed_suppression"
	ChecksNontrivial      Key = "c.nontriv"
	ChecksHitCache        Key = "c.hit_cache"

	QueriesAbortHeap    Key = "a.abort_heap"
	QueriesAbortStack   Key = "a.abort_stack"
	QueriesAbortStatic  Key = "a.abort_static"
	QueriesAbortStorage Key = "a.abort_storage"
	QueriesHeap         Key = "a.heap"
	QueriesStack        Key = "a.stack"
	QueriesStatic       Key = "a.static"
)

// CounterSet maps counter keys to their reported values.
type CounterSet map[Key]int

type pattern struct {
	key  Key
	text string
}

// patterns is the match table in priority order. Order matters: the
// first pattern that matches a line absorbs it, which is what
// disambiguates entries whose text is a prefix of another's.
var patterns = []pattern{
	// libcrunch summary lines
	{ChecksBegun, "checks begun"},
	{ChecksAbortedTypename, "checks aborted for bad typename"},
	{ChecksRemaining, "checks remaining"},
	{ChecksLazyHeap, "of which did lazy heap type assignment"},
	{ChecksFailedAlloc, "checks failed inside allocation functions"},
	{ChecksFailedOther, "checks failed otherwise"},
	{ChecksFailedSuppress, "of which user suppression list matched"},
	{ChecksNontrivial, "checks nontrivially passed"},
	{ChecksHitCache, "of which hit __is_a cache"},

	// liballocs summary lines
	{QueriesAbortHeap, "queries aborted for unindexed heap"},
	{QueriesAbortStack, "queries aborted for unknown stackframes"},
	{QueriesAbortStatic, "queries aborted for unknown static obj"},
	{QueriesAbortStorage, "queries aborted for unknown storage"},
	{QueriesHeap, "queries handled by heap case"},
	{QueriesStack, "queries handled by stack case"},
	{QueriesStatic, "queries handled by static case"},
}

// ValidKey reports whether k belongs to the counter vocabulary.
func ValidKey(k Key) bool {
	for _, p := range patterns {
		if p.key == k {
			return true
		}
	}
	return false
}

// Keys returns the full counter vocabulary in priority order.
func Keys() []Key {
	out := make([]Key, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.key)
	}
	return out
}

// ParseLine matches one trimmed line against the counter table. A line
// matches a pattern when it starts with the pattern text, optionally
// followed by a colon, then at least one whitespace character and a
// nonnegative integer. Anything after the integer is ignored. At most
// one counter is returned per line.
func ParseLine(line string) (Key, int, bool) {
	for _, p := range patterns {
		if v, ok := matchCounter(line, p.text); ok {
			return p.key, v, true
		}
	}
	return "", 0, false
}

func matchCounter(line, text string) (int, bool) {
	rest, ok := strings.CutPrefix(line, text)
	if !ok {
		return 0, false
	}
	rest = strings.TrimPrefix(rest, ":")
	trimmed := strings.TrimLeft(rest, " \t")
	if trimmed == rest {
		// The colon-less form still needs whitespace before the value.
		return 0, false
	}
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	v := 0
	for _, c := range trimmed[:i] {
		v = v*10 + int(c-'0')
	}
	return v, true
}

// Extract parses a whole diagnostic stream. Each line is trimmed and
// matched independently; if two lines report the same key the later
// line wins. Extraction cannot fail: unmatched lines and empty input
// just contribute nothing.
func Extract(text string) CounterSet {
	out := CounterSet{}
	for _, line := range strings.Split(text, "\n") {
		if k, v, ok := ParseLine(strings.TrimSpace(line)); ok {
			out[k] = v
		}
	}
	return out
}

package timing

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_KeepsExecutionOrder(t *testing.T) {
	tm := New()
	tm.Add("stock", "crunch/heap", 3*time.Second)
	tm.Add("stock", "crunch/heap", 1*time.Second)
	tm.Add("stock", "crunch/heap", 2*time.Second)

	assert.Equal(t, []time.Duration{3 * time.Second, 1 * time.Second, 2 * time.Second},
		tm.Get("stock", "crunch/heap"))
}

func TestWriteTo_HeaderAndRows(t *testing.T) {
	tm := New()
	tm.Add("stock", "allocs/simple", 2*time.Second)
	tm.Add("new", "allocs/simple", 1*time.Second)
	tm.Add("stock", "crunch/va_arg", 4*time.Second)
	tm.Add("new", "crunch/va_arg", 2*time.Second)

	var buf bytes.Buffer
	require.NoError(t, tm.WriteTo(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "TestName\tXPos\tnewMean\tnewSD\tstockMean\tstockSD", lines[0])
	assert.Equal(t, `\texttt{allocs/simple}`+"\t0\t1\t0\t2\t0", lines[1])
	assert.Equal(t, `\texttt{crunch/va\_arg}`+"\t1\t2\t0\t4\t0", lines[2])
}

func TestWriteTo_MeanAndStddev(t *testing.T) {
	tm := New()
	tm.Add("new", "t", 1*time.Second)
	tm.Add("new", "t", 3*time.Second)

	var buf bytes.Buffer
	require.NoError(t, tm.WriteTo(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	// mean(1,3) = 2, population sd = 1
	assert.Equal(t, `\texttt{t}`+"\t0\t2\t1", lines[1])
}

func TestWriteTo_SkipsIncompleteRowsButKeepsSlot(t *testing.T) {
	tm := New()
	tm.Add("new", "aa", time.Second)
	tm.Add("stock", "aa", time.Second)
	tm.Add("new", "bb", time.Second) // no stock observation
	tm.Add("new", "cc", time.Second)
	tm.Add("stock", "cc", time.Second)

	var buf bytes.Buffer
	require.NoError(t, tm.WriteTo(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], `\texttt{aa}`+"\t0"))
	// bb is skipped but still consumes XPos 1.
	assert.True(t, strings.HasPrefix(lines[2], `\texttt{cc}`+"\t2"))
}

func TestWriteFile(t *testing.T) {
	tm := New()
	tm.Add("new", "t", 500*time.Millisecond)
	path := filepath.Join(t.TempDir(), "buildTimes.dat")
	require.NoError(t, tm.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "TestName\tXPos\tnewMean\tnewSD\n")
	assert.Contains(t, string(raw), "0.5")
}

func TestStats(t *testing.T) {
	assert.Equal(t, 0.0, mean(nil))
	assert.Equal(t, 0.0, stddev(nil))
	assert.InDelta(t, 2.0, mean([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 0.816496580927726, stddev([]float64{1, 2, 3}), 1e-12)
}

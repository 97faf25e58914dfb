package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	tbl := Builtin()
	assert.Equal(t, []string{"base", "baseO4", "new", "stock"}, tbl.Names())

	stock, ok := tbl.Lookup("stock")
	require.True(t, ok)
	assert.True(t, stock.CheckSummary)
	assert.Equal(t, []string{"allocscc"}, stock.AllocsCmd)
	assert.Equal(t, []string{"crunchcc"}, stock.CrunchCmd)

	base, ok := tbl.Lookup("base")
	require.True(t, ok)
	assert.False(t, base.CheckSummary)
	assert.Equal(t, []string{"clang", "-ldl", "-lallocs", "-O0"}, base.AllocsCmd)

	baseO4, ok := tbl.Lookup("baseO4")
	require.True(t, ok)
	assert.Equal(t, []string{"clang", "-ldl", "-lallocs", "-O4"}, baseO4.CrunchCmd)
}

func TestTable_DuplicateRejected(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Add(Variant{Name: "new"}))
	require.Error(t, tbl.Add(Variant{Name: "new"}))
	require.Error(t, tbl.Add(Variant{}))
}

func TestTable_AllOrderedByName(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Add(Variant{Name: "zz"}))
	require.NoError(t, tbl.Add(Variant{Name: "aa"}))
	all := tbl.All()
	require.Len(t, all, 2)
	assert.Equal(t, "aa", all[0].Name)
	assert.Equal(t, "zz", all[1].Name)
}

package testcase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdiamand/ClangCrunch/internal/config"
	"github.com/chrisdiamand/ClangCrunch/internal/summary"
	"github.com/chrisdiamand/ClangCrunch/internal/toolchain"
)

func testConfig() config.Config {
	return config.Config{
		TestDir:        "/work/test",
		LiballocsBase:  "/opt/liballocs",
		LibcrunchBase:  "/opt/libcrunch",
		AllocsitesBase: "/usr/lib/allocsites",
	}
}

func TestDirect_AllocsBuildArgv(t *testing.T) {
	c := NewDirect(testConfig(), Spec{
		File:  "allocs/simple.c",
		Kind:  KindAllocs,
		Flags: []string{"-lallocs"},
	})
	v := toolchain.Variant{Name: "stock", AllocsCmd: []string{"allocscc"}, CrunchCmd: []string{"crunchcc"}}

	assert.Equal(t, "allocs/simple", c.Name())
	assert.Equal(t, []string{
		"allocscc", "-std=c99", "-DUSE_STARTUP_BRK", "-lallocs",
		"/work/test/allocs/simple.c", "-o", "/work/test/allocs/simple",
	}, c.BuildArgv(v))
}

func TestDirect_CrunchBuildArgv(t *testing.T) {
	c := NewDirect(testConfig(), Spec{File: "crunch/heap.c", Kind: KindCrunch})
	v := toolchain.Variant{Name: "new", CrunchCmd: []string{"clangcrunchcc"}}

	argv := c.BuildArgv(v)
	assert.Equal(t, []string{
		"clangcrunchcc",
		"-D_GNU_SOURCE", "-std=c99", "-DUSE_STARTUP_BRK",
		"-fno-eliminate-unused-debug-types",
		"-I/opt/libcrunch/include", "-I/opt/liballocs/include",
		"crunch/heap.c", "-o", "/work/test/crunch/heap",
	}, argv)
}

func TestDirect_RunEnvPreload(t *testing.T) {
	allocs := NewDirect(testConfig(), Spec{File: "allocs/simple.c", Kind: KindAllocs,
		RunEnv: map[string]string{"LIBALLOCS_ALLOC_FNS": "xmalloc(Z)p"}})
	env := allocs.RunEnv()
	assert.Equal(t, "/opt/liballocs/lib/liballocs_preload.so", env["LD_PRELOAD"])
	assert.Equal(t, "xmalloc(Z)p", env["LIBALLOCS_ALLOC_FNS"])

	crunch := NewDirect(testConfig(), Spec{File: "crunch/heap.c", Kind: KindCrunch,
		RunEnv: map[string]string{"LD_PRELOAD": "/elsewhere.so"}})
	// The preload override always wins over a test-supplied value.
	assert.Equal(t, "/opt/libcrunch/lib/libcrunch_preload.so", crunch.RunEnv()["LD_PRELOAD"])
}

func TestDirect_CleanPaths(t *testing.T) {
	c := NewDirect(testConfig(), Spec{File: "crunch/heap.c", Kind: KindCrunch})
	paths := c.CleanPaths()

	assert.Contains(t, paths, "/work/test/crunch/heap.o")
	assert.Contains(t, paths, "/work/test/crunch/heap-allocsites.so")
	assert.Contains(t, paths, "/work/test/crunch/heap")
	// The allocsites mirror of the output path is cleaned too.
	assert.Contains(t, paths, "/usr/lib/allocsites/work/test/crunch/heap-types.so")
	assert.Len(t, paths, 2*len(CleanExts)+1)
}

func TestMakefileCase(t *testing.T) {
	c := NewMakefile(testConfig(), "crunch/section_group", summary.CounterSet{summary.ChecksBegun: 1})
	v := toolchain.Variant{Name: "stock", CrunchCmd: []string{"crunchcc", "-g"}}

	assert.Equal(t, "crunch/section_group", c.Name())
	assert.Equal(t, []string{"make", "-C", "/work/test/crunch/section_group"}, c.BuildArgv(v))
	assert.Equal(t, map[string]string{"CC": "crunchcc -g"}, c.BuildEnv(v))
	assert.Equal(t, []string{"/work/test/crunch/section_group/section_group"}, c.RunArgv())
	assert.Equal(t, "/opt/libcrunch/lib/libcrunch_preload.so", c.RunEnv()["LD_PRELOAD"])
	assert.Empty(t, c.CleanPaths())
	assert.False(t, c.ShouldFail())
}

func TestClean_RemovesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		TestDir:        dir,
		LiballocsBase:  "/opt/liballocs",
		LibcrunchBase:  "/opt/libcrunch",
		AllocsitesBase: filepath.Join(dir, "allocsites"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "allocs"), 0o755))

	c := NewDirect(cfg, Spec{File: "allocs/simple.c", Kind: KindAllocs})

	stale := []string{
		filepath.Join(dir, "allocs/simple"),
		filepath.Join(dir, "allocs/simple.o"),
		filepath.Join(dir, "allocs/simple-types.c"),
	}
	for _, p := range stale {
		require.NoError(t, os.WriteFile(p, []byte("stale"), 0o644))
	}
	// The source file must survive cleaning.
	src := filepath.Join(dir, "allocs/simple.c")
	require.NoError(t, os.WriteFile(src, []byte("int main(void) { return 0; }"), 0o644))

	require.NoError(t, Clean(c))

	for _, p := range stale {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "expected %s to be removed", p)
	}
	_, err := os.Stat(src)
	assert.NoError(t, err)
}

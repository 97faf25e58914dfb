package registry

import (
	_ "embed"

	"github.com/chrisdiamand/ClangCrunch/internal/config"
)

//go:embed tests.yaml
var builtinManifest []byte

// Builtin loads the embedded test corpus.
func Builtin(cfg config.Config) (*Registry, error) {
	return LoadManifest(cfg, builtinManifest, PkgConfig)
}

// Package config resolves where the toolchain under test and the sample
// programs live. Discovery follows the environment first and an optional
// crunchtest.yaml overlay second.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config locates everything the harness shells out to.
type Config struct {
	// TestDir is the directory holding the sample programs; it is also
	// the working directory of every build and run.
	TestDir string `yaml:"testDir" validate:"required"`

	// LiballocsBase and LibcrunchBase are the toolchain checkouts; the
	// runtime preload libraries and include directories hang off them.
	LiballocsBase string `yaml:"liballocsBase" validate:"required"`
	LibcrunchBase string `yaml:"libcrunchBase" validate:"required"`

	// AllocsitesBase mirrors built binaries' absolute paths; metadata
	// generated there is cleaned up alongside the binary itself.
	AllocsitesBase string `yaml:"allocsitesBase" validate:"required"`
}

// AllocsPreload returns the liballocs runtime to LD_PRELOAD.
func (c Config) AllocsPreload() string {
	return filepath.Join(c.LiballocsBase, "lib", "liballocs_preload.so")
}

// CrunchPreload returns the libcrunch runtime to LD_PRELOAD.
func (c Config) CrunchPreload() string {
	return filepath.Join(c.LibcrunchBase, "lib", "libcrunch_preload.so")
}

// CrunchInclude returns the include directories crunch-kind builds need.
func (c Config) CrunchInclude() []string {
	return []string{
		filepath.Join(c.LibcrunchBase, "include"),
		filepath.Join(c.LiballocsBase, "include"),
	}
}

// Discover builds a Config for the given test directory from the
// ambient environment, then overlays the YAML file at overlayPath when
// it exists. An empty overlayPath means env-only discovery.
func Discover(testDir, overlayPath string) (Config, error) {
	abs, err := filepath.Abs(testDir)
	if err != nil {
		return Config{}, err
	}

	liballocs := os.Getenv("LIBALLOCS_BASE")
	if liballocs == "" {
		liballocs = filepath.Join(abs, "../../liballocs")
	}
	liballocs = mustAbs(liballocs)

	libcrunch := os.Getenv("LIBCRUNCH_BASE")
	if libcrunch == "" {
		libcrunch = filepath.Join(liballocs, "../libcrunch")
	}
	libcrunch = mustAbs(libcrunch)

	allocsites := os.Getenv("ALLOCSITES_BASE")
	if allocsites == "" {
		allocsites = "/usr/lib/allocsites"
	}
	allocsites = mustAbs(allocsites)

	cfg := Config{
		TestDir:        abs,
		LiballocsBase:  liballocs,
		LibcrunchBase:  libcrunch,
		AllocsitesBase: allocsites,
	}

	if overlayPath != "" {
		if err := overlay(&cfg, overlayPath); err != nil {
			return Config{}, err
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func overlay(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var o Config
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("invalid config yaml %s: %w", path, err)
	}
	if o.TestDir != "" {
		cfg.TestDir = mustAbs(o.TestDir)
	}
	if o.LiballocsBase != "" {
		cfg.LiballocsBase = mustAbs(o.LiballocsBase)
	}
	if o.LibcrunchBase != "" {
		cfg.LibcrunchBase = mustAbs(o.LibcrunchBase)
	}
	if o.AllocsitesBase != "" {
		cfg.AllocsitesBase = mustAbs(o.AllocsitesBase)
	}
	return nil
}

func mustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

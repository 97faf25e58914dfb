package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chrisdiamand/ClangCrunch/internal/cli"
)

var version = "0.0.0-dev"

func main() {
	exit := 0
	root := &cobra.Command{
		Use:     "crunchtest [selector ...]",
		Short:   "Run the libcrunch/liballocs test matrix",
		Version: version,
		Long: `crunchtest builds and runs the sample corpus against the selected
toolchain variants and verifies the diagnostic counters each binary
reports. Selectors are test-name prefixes, variant names, the ALL
keyword, or a -rN repetition count; CLEAN removes generated artifacts
and ZSHCOMP prints completion candidates.`,
		// Selectors like -r3 look like flags, so raw args go straight
		// to the runner.
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			r := cli.Runner{
				Version: version,
				TestDir: os.Getenv("CRUNCHTEST_DIR"),
			}
			exit = r.Run(args)
		},
	}
	if err := root.Execute(); err != nil {
		exit = 2
	}
	os.Exit(exit)
}

package testcase

import (
	"context"
	"fmt"
	"os"

	"github.com/chrisdiamand/ClangCrunch/internal/invoke"
	"github.com/chrisdiamand/ClangCrunch/internal/toolchain"
)

// Exec runs case stages through real subprocesses.
type Exec struct{}

// Build cleans the case's artifacts and invokes the variant's build
// command. Cleaning happens unconditionally so a stale binary from an
// earlier run can never turn a broken build into a false pass.
func (Exec) Build(ctx context.Context, c Case, v toolchain.Variant) (invoke.Result, error) {
	if err := Clean(c); err != nil {
		return invoke.Result{}, err
	}
	return invoke.Run(ctx, c.BuildArgv(v), c.Dir(), c.BuildEnv(v))
}

// Run executes the built binary with the case's run environment.
func (Exec) Run(ctx context.Context, c Case) (invoke.Result, error) {
	return invoke.Run(ctx, c.RunArgv(), c.Dir(), c.RunEnv())
}

// Clean removes every artifact the case owns. Missing files are fine.
func Clean(c Case) error {
	for _, p := range c.CleanPaths() {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clean %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Package invoke runs one toolchain command to completion, capturing
// its output streams, exit code and elapsed time.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Result describes one completed invocation.
type Result struct {
	ExitCode int
	Duration time.Duration
	Stdout   string
	Stderr   string
}

// Run executes argv in dir with the ambient environment overlaid by
// env. It blocks until the process exits; there is no timeout, and a
// hung tool hangs the caller. Cancelling ctx kills the process group
// and returns ctx's error.
func Run(ctx context.Context, argv []string, dir string, env map[string]string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("missing command argv")
	}

	log.Info().Str("cmd", strings.Join(argv, " ")).Str("env", formatEnv(env)).Msg("exec")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = mergedEnv(env)
	// Run the tool in its own process group so cancellation also reaps
	// anything it spawned (make children, linker subprocesses).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := outBuf.ReadFrom(outPipe)
		return err
	})
	g.Go(func() error {
		_, err := errBuf.ReadFrom(errPipe)
		return err
	})
	copyErr := g.Wait()
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	exitCode := 0
	if waitErr != nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) {
			return Result{}, waitErr
		}
		exitCode = ee.ExitCode()
	}
	if copyErr != nil {
		return Result{}, copyErr
	}

	res := Result{
		ExitCode: exitCode,
		Duration: elapsed,
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
	}

	log.Info().Str("cmd", argv[0]).Int("exit", res.ExitCode).Dur("elapsed", elapsed).Msg("exec done")
	log.Debug().Str("stdout", res.Stdout).Str("stderr", res.Stderr).Msg("exec output")

	return res, nil
}

// mergedEnv returns the ambient environment with env applied on top.
func mergedEnv(env map[string]string) []string {
	if len(env) == 0 {
		return os.Environ()
	}
	out := []string{}
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if _, shadowed := env[k]; !shadowed {
			out = append(out, kv)
		}
	}
	for _, k := range sortedEnvKeys(env) {
		out = append(out, k+"="+env[k])
	}
	return out
}

func formatEnv(env map[string]string) string {
	var parts []string
	for _, k := range sortedEnvKeys(env) {
		parts = append(parts, k+"='"+env[k]+"'")
	}
	return strings.Join(parts, " ")
}

func sortedEnvKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

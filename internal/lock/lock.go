// Package lock serializes harness invocations over one test tree. Two
// concurrent matrix runs would race on build artifacts and timing
// files, so the tree is guarded by a directory lock for the duration
// of a run.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const staleAfter = 2 * time.Minute

// WithTestDir runs fn while holding the lock for testDir, waiting up
// to wait for another harness to finish first.
func WithTestDir(testDir string, wait time.Duration, fn func() error) error {
	release, err := acquire(filepath.Join(testDir, ".crunchtest.lock"), wait)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()
	return fn()
}

type owner struct {
	PID       int    `json:"pid"`
	StartedAt string `json:"startedAt"`
}

func acquire(lockDir string, wait time.Duration) (func() error, error) {
	deadline := time.Now().Add(wait)
	for {
		if err := os.Mkdir(lockDir, 0o755); err == nil {
			// Owner metadata is best effort; it only serves stale-lock
			// cleanup and debugging.
			o := owner{PID: os.Getpid(), StartedAt: time.Now().UTC().Format(time.RFC3339Nano)}
			if b, err := json.Marshal(o); err == nil {
				_ = os.WriteFile(filepath.Join(lockDir, "owner.json"), b, 0o644)
			}
			return func() error { return os.RemoveAll(lockDir) }, nil
		} else if !os.IsExist(err) {
			return nil, err
		}

		// A crashed harness leaves its lock behind; break it once the
		// owner is provably gone.
		if stale(lockDir, time.Now()) {
			_ = os.RemoveAll(lockDir)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout acquiring lock: %s", lockDir)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func stale(lockDir string, now time.Time) bool {
	info, err := os.Stat(lockDir)
	if err != nil {
		return false
	}
	if now.Sub(info.ModTime()) <= staleAfter {
		return false
	}
	raw, err := os.ReadFile(filepath.Join(lockDir, "owner.json"))
	if err != nil {
		return true
	}
	var o owner
	if err := json.Unmarshal(raw, &o); err != nil || o.PID <= 0 {
		return true
	}
	return !processAlive(o.PID)
}

// processAlive probes the pid with a null signal.
func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

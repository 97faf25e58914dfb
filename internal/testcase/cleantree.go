package testcase

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CleanTree removes every file under root whose name carries one of
// the generated-artifact suffixes. Used by the bulk-clean keyword to
// sweep leftovers the per-test lists miss.
func CleanTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, e := range CleanExts {
			if strings.HasSuffix(p, e) {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return err
				}
				break
			}
		}
		return nil
	})
}

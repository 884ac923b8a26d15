package testutil

import (
	"os"
	"path/filepath"
)

// TempDir creates a temporary directory for testing that will be removed
// after the test finishes. Symlinks in the path are resolved, so that the
// path agrees with what the shell sees after changing into it.
func TempDir(c Cleanuper) string {
	dir, err := os.MkdirTemp("", "lshtest")
	Must(err)
	c.Cleanup(func() { os.RemoveAll(dir) })
	dir, err = filepath.EvalSymlinks(dir)
	Must(err)
	return dir
}

// InTempDir is like TempDir, but also changes into the directory, and
// restores the working directory when the test finishes.
func InTempDir(c Cleanuper) string {
	dir := TempDir(c)
	Chdir(c, dir)
	return dir
}

// Chdir changes into a directory, and restores the original working
// directory when the test finishes.
func Chdir(c Cleanuper, dir string) string {
	oldWd, err := os.Getwd()
	Must(err)
	Must(os.Chdir(dir))
	c.Cleanup(func() { Must(os.Chdir(oldWd)) })
	return dir
}

package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"src.lsh.sh/pkg/env"
)

// ErrNotFound is returned by Search when no executable file is found.
var ErrNotFound = errors.New("command not found")

// ErrNotExecutable is returned by Search when a file was found but cannot be
// executed.
var ErrNotExecutable = errors.New("permission denied")

// DontSearch determines whether the path to an external command should be
// taken literally and not searched.
func DontSearch(exe string) bool {
	return strings.ContainsRune(exe, '/')
}

// IsExecutable returns whether the FileInfo refers to an executable file.
func IsExecutable(stat fs.FileInfo) bool {
	return !stat.IsDir() && stat.Mode()&0o111 != 0
}

// Search finds the executable file for an external command. Names that
// contain a slash are used as they are; other names are searched in the
// directories of $PATH. An empty directory in $PATH means the working
// directory.
//
// The error wraps ErrNotFound or ErrNotExecutable, which callers map to the
// exit statuses 127 and 126.
func Search(exe string) (string, error) {
	if DontSearch(exe) {
		return exe, checkExecutable(exe)
	}
	notExecutable := ""
	for _, dir := range searchPaths() {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, exe)
		switch err := checkExecutable(path); {
		case err == nil:
			return path, nil
		case errors.Is(err, ErrNotExecutable) && notExecutable == "":
			notExecutable = path
		}
	}
	if notExecutable != "" {
		return "", &os.PathError{Op: "exec", Path: notExecutable, Err: ErrNotExecutable}
	}
	return "", &os.PathError{Op: "exec", Path: exe, Err: ErrNotFound}
}

func checkExecutable(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return &os.PathError{Op: "exec", Path: path, Err: ErrNotFound}
	}
	if !IsExecutable(stat) {
		return &os.PathError{Op: "exec", Path: path, Err: ErrNotExecutable}
	}
	return nil
}

// EachExternal calls f for each executable file found while scanning the
// directories of $PATH.
//
// NOTE: EachExternal may generate the same command multiple times; once for
// each time it appears in $PATH.
func EachExternal(f func(string)) {
	for _, dir := range searchPaths() {
		files, err := os.ReadDir(dir)
		if err != nil {
			// There isn't much we can reasonably do with an invalid directory
			// other than silently ignoring it.
			continue
		}
		for _, file := range files {
			stat, err := file.Info()
			if err == nil && IsExecutable(stat) {
				f(stat.Name())
			}
		}
	}
}

func searchPaths() []string {
	return strings.Split(os.Getenv(env.PATH), string(filepath.ListSeparator))
}

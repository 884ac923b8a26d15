package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/testutil"
)

func TestSearch(t *testing.T) {
	dir := testutil.InTempDir(t)
	os.Mkdir("bin", 0o755)
	os.WriteFile("bin/prog", []byte("#!/bin/sh\n"), 0o755)
	os.WriteFile("bin/data", []byte(""), 0o644)
	testutil.Setenv(t, env.PATH, filepath.Join(dir, "bin"))

	if path, err := Search("prog"); err != nil || path != filepath.Join(dir, "bin", "prog") {
		t.Errorf("Search(prog) -> (%q, %v)", path, err)
	}
	if _, err := Search("data"); !errors.Is(err, ErrNotExecutable) {
		t.Errorf("Search(data) -> %v, want ErrNotExecutable", err)
	}
	if _, err := Search("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Search(nope) -> %v, want ErrNotFound", err)
	}
	if path, err := Search("./bin/prog"); err != nil || path != "./bin/prog" {
		t.Errorf("Search(./bin/prog) -> (%q, %v)", path, err)
	}

	var found []string
	EachExternal(func(name string) { found = append(found, name) })
	if len(found) != 1 || found[0] != "prog" {
		t.Errorf("EachExternal found %v, want [prog]", found)
	}
}

func TestTildeAbbr(t *testing.T) {
	testutil.Setenv(t, env.HOME, "/home/u")
	for path, want := range map[string]string{
		"/home/u":      "~",
		"/home/u/src":  "~/src",
		"/home/user":   "/home/user",
		"/usr/bin/env": "/usr/bin/env",
	} {
		if got := TildeAbbr(path); got != want {
			t.Errorf("TildeAbbr(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestGetHome(t *testing.T) {
	testutil.Setenv(t, env.HOME, "/home/u/")
	if home, err := GetHome(""); err != nil || home != "/home/u" {
		t.Errorf("GetHome(\"\") -> (%q, %v)", home, err)
	}
}

package shell

import (
	"os"
	"path/filepath"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/fsutil"
)

// Paths keeps the locations of the files lsh uses.
type Paths struct {
	// Configuration file, read in every mode.
	Config string
	// Code sourced when an interactive session starts.
	RC string
	// History database, opened in interactive mode.
	DB string
}

// DefaultPaths returns the default locations, which follow the XDG base
// directory layout: $XDG_CONFIG_HOME/lsh/{config.yaml,rc.sh} and
// $XDG_DATA_HOME/lsh/db.
func DefaultPaths() (Paths, error) {
	configDir, err := xdgDir(env.XDG_CONFIG_HOME, ".config")
	if err != nil {
		return Paths{}, err
	}
	dataDir, err := xdgDir(env.XDG_DATA_HOME, filepath.Join(".local", "share"))
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		Config: filepath.Join(configDir, "lsh", "config.yaml"),
		RC:     filepath.Join(configDir, "lsh", "rc.sh"),
		DB:     filepath.Join(dataDir, "lsh", "db"),
	}, nil
}

// Returns the directory named by the environment variable, or the fallback
// under the home directory when it is unset or not absolute.
func xdgDir(name, fallback string) (string, error) {
	if dir := os.Getenv(name); filepath.IsAbs(dir) {
		return dir, nil
	}
	home, err := fsutil.GetHome("")
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback), nil
}

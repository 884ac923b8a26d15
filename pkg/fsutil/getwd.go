// Package fsutil provides filesystem utilities used by the shell: command
// search, home directories and the working directory shown in the prompt.
package fsutil

import (
	"os"
	"os/user"
	"strings"

	"src.lsh.sh/pkg/env"
)

// Getwd returns path of the working directory in a format suitable as the
// prompt.
func Getwd() string {
	pwd, err := os.Getwd()
	if err != nil {
		return "?"
	}
	return TildeAbbr(pwd)
}

// TildeAbbr abbreviates the user's home directory to ~.
func TildeAbbr(path string) string {
	home, err := GetHome("")
	if home == "" || home == "/" {
		// If home is "" or "/", do not abbreviate because (1) it is likely a
		// problem with the environment and (2) it will make the path actually
		// longer.
		return path
	}
	if err == nil {
		if path == home {
			return "~"
		} else if strings.HasPrefix(path, home+"/") {
			return "~" + path[len(home):]
		}
	}
	return path
}

// GetHome finds the home directory of a specified user. When given an empty
// string, it finds the home directory of the current user, preferring $HOME.
func GetHome(uname string) (string, error) {
	if uname == "" {
		if home := os.Getenv(env.HOME); home != "" {
			return strings.TrimRight(home, "/"), nil
		}
	}
	var u *user.User
	var err error
	if uname == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(uname)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(u.HomeDir, "/"), nil
}

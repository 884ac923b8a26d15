// Package buildinfo contains build information.
//
// Build information should be set during compilation by passing
// -ldflags "-X src.lsh.sh/pkg/buildinfo.Var=value" to "go build".
package buildinfo

import (
	"encoding/json"
	"fmt"
	"os"

	"src.lsh.sh/pkg/prog"
)

// Version identifies the version of lsh. On development commits, it
// identifies the next release.
const Version = "v0.1.0"

// VersionSuffix is appended to Version to build the full version string.
var VersionSuffix = "-dev.unknown"

// Program is the buildinfo subprogram. It runs when -version is given.
var Program prog.Program = program{}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags, _ []string) error {
	if !f.Version {
		return prog.ErrNextProgram
	}
	fullVersion := Version + VersionSuffix
	if f.JSON {
		data, err := json.Marshal(struct {
			Version string `json:"version"`
		}{fullVersion})
		if err != nil {
			return err
		}
		fmt.Fprintf(fds[1], "%s\n", data)
		return nil
	}
	fmt.Fprintln(fds[1], fullVersion)
	return nil
}

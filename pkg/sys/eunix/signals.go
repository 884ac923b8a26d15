//go:build unix

package eunix

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ParseSignal parses a signal given as a number, or as a name with or
// without the SIG prefix in any case, such as "9", "KILL" or "sigterm".
func ParseSignal(s string) (unix.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || unix.SignalName(unix.Signal(n)) == "" {
			return 0, fmt.Errorf("invalid signal number: %d", n)
		}
		return unix.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("invalid signal name: %s", s)
	}
	return sig, nil
}

// SignalNames returns the names of the known signals without the SIG
// prefix, in the order of their numbers.
func SignalNames() []string {
	var names []string
	for sig := unix.Signal(1); sig < 65; sig++ {
		if name := unix.SignalName(sig); name != "" {
			names = append(names, strings.TrimPrefix(name, "SIG"))
		}
	}
	return names
}

//go:build unix

package eunix

import "golang.org/x/sys/unix"

// TermiosGet returns the terminal attributes of fd.
func TermiosGet(fd int) (*unix.Termios, error) {
	return unix.IoctlGetTermios(fd, getAttrIOCTL)
}

// TermiosSet sets the terminal attributes of fd, after pending output has
// been written.
func TermiosSet(fd int, term *unix.Termios) error {
	return unix.IoctlSetTermios(fd, setAttrDrainIOCTL, term)
}

package testutil

import (
	"io"
	"os"
)

// MustPipe calls os.Pipe and panics if it fails.
func MustPipe() (*os.File, *os.File) {
	r, w, err := os.Pipe()
	Must(err)
	return r, w
}

// MustReadAllAndClose reads r to the end, closes it, and panics on error.
func MustReadAllAndClose(r io.ReadCloser) []byte {
	bs, err := io.ReadAll(r)
	Must(err)
	r.Close()
	return bs
}

// MustWriteFile calls os.WriteFile and panics if an error occurs.
func MustWriteFile(filename, data string) {
	Must(os.WriteFile(filename, []byte(data), 0644))
}

// Must panics if the error value is not nil.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

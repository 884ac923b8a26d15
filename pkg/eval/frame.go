package eval

import (
	"context"
	"fmt"
	"os"
)

// Frame is the context code runs in: the open files and the context that
// interrupts it.
type Frame struct {
	ev    *Evaler
	ctx   context.Context
	files []*os.File
}

// Evaler returns the Evaler of the frame.
func (fm *Frame) Evaler() *Evaler { return fm.ev }

// Context returns the context of the frame.
func (fm *Frame) Context() context.Context { return fm.ctx }

// File returns the file open at fd, or nil.
func (fm *Frame) File(fd int) *os.File {
	if fd < len(fm.files) {
		return fm.files[fd]
	}
	return nil
}

// In returns the standard input.
func (fm *Frame) In() *os.File { return fm.File(0) }

// Out returns the standard output.
func (fm *Frame) Out() *os.File { return fm.File(1) }

// Err returns the standard error.
func (fm *Frame) Err() *os.File { return fm.File(2) }

// Returns a copy of the frame with its own file table.
func (fm *Frame) fork() *Frame {
	newFm := *fm
	newFm.files = append([]*os.File(nil), fm.files...)
	return &newFm
}

func (fm *Frame) setFile(fd int, f *os.File) {
	for len(fm.files) <= fd {
		fm.files = append(fm.files, nil)
	}
	fm.files[fd] = f
}

// Prints an error message prefixed by the name of a command to stderr.
func (fm *Frame) errorf(name, format string, args ...interface{}) {
	if f := fm.Err(); f != nil {
		fmt.Fprintf(f, "%s: %s\n", name, fmt.Sprintf(format, args...))
	}
}

func (fm *Frame) printf(format string, args ...interface{}) {
	if f := fm.Out(); f != nil {
		fmt.Fprintf(f, format, args...)
	}
}

// Reports whether the frame has been interrupted.
func (fm *Frame) interrupted() bool {
	select {
	case <-fm.ctx.Done():
		return true
	default:
		return false
	}
}

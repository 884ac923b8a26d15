package eval

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"src.lsh.sh/pkg/parse"
)

// ErrBadFd is wrapped in errors about duplicating a file descriptor that is
// not open.
var ErrBadFd = errors.New("bad file descriptor")

// Applies redirections to a copy of the frame. The returned function closes
// the files opened for it.
func (fm *Frame) redirect(redirs []*parse.Node) (*Frame, func(), error) {
	newFm := fm.fork()
	var opened []*os.File
	cleanup := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, r := range redirs {
		op := r.Val.Str
		target, err := fm.expandString(r.Child(0))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		fd := int(r.Val.Num)
		if fd < 0 {
			fd = 1
			if op[0] == '<' {
				fd = 0
			}
		}
		switch op {
		case "<&", ">&":
			if target == "-" {
				newFm.setFile(fd, nil)
				continue
			}
			src, err := strconv.Atoi(target)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("%s: ambiguous redirect", target)
			}
			f := newFm.File(src)
			if f == nil {
				cleanup()
				return nil, nil, fmt.Errorf("%d: %w", src, ErrBadFd)
			}
			newFm.setFile(fd, f)
			continue
		}
		var flag int
		switch op {
		case "<":
			flag = os.O_RDONLY
		case ">", ">|":
			flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		case ">>":
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		case "<>":
			flag = os.O_RDWR | os.O_CREATE
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unsupported redirection %s", op)
		}
		f, err := os.OpenFile(target, flag, 0o644)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opened = append(opened, f)
		newFm.setFile(fd, f)
	}
	return newFm, cleanup, nil
}

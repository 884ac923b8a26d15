package eval

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"src.lsh.sh/pkg/env"
	"src.lsh.sh/pkg/fsutil"
	"src.lsh.sh/pkg/glob"
	"src.lsh.sh/pkg/parse"
	"src.lsh.sh/pkg/sys"
)

// Exec runs n and returns its exit status, which also becomes $?.
func (fm *Frame) Exec(n *parse.Node) int {
	status := fm.exec(n)
	fm.ev.setStatus(status)
	return status
}

func (fm *Frame) exec(n *parse.Node) int {
	switch n.Kind {
	case parse.NodeSubshell:
		// The child shell applies the redirections itself.
		return fm.execPipeline([]*parse.Node{n}, false, n)
	case parse.NodeBackground:
		return fm.execBackground(n.Child(0))
	}
	body, redirs := splitRedirs(n)
	if len(redirs) > 0 {
		newFm, cleanup, err := fm.redirect(redirs)
		if err != nil {
			fm.errorf("lsh", "%v", err)
			return 1
		}
		defer cleanup()
		fm = newFm
	}
	ev := fm.ev
	switch n.Kind {
	case parse.NodeList:
		return fm.execList(n)
	case parse.NodeAnd, parse.NodeOr:
		left := fm.cond(n.Child(0))
		if ev.flow != flowNone || (n.Kind == parse.NodeAnd) != (left == 0) {
			return left
		}
		return fm.exec(n.Child(1))
	case parse.NodeNot:
		if fm.cond(n.Child(0)) == 0 {
			return 1
		}
		return 0
	case parse.NodePipe:
		return fm.execPipeline(n.Children, false, n)
	case parse.NodeCommand:
		return fm.execCommand(n)
	case parse.NodeFor:
		if body[0].Kind == parse.NodeArithExpr {
			return fm.execArithFor(body)
		}
		return fm.execFor(body)
	case parse.NodeSelect:
		return fm.execSelect(body)
	case parse.NodeWhile, parse.NodeUntil:
		return fm.execWhile(body[0], body[1], n.Kind == parse.NodeWhile)
	case parse.NodeIf:
		return fm.execIf(body)
	case parse.NodeCase:
		return fm.execCase(body)
	case parse.NodeGroup:
		return fm.exec(body[0])
	case parse.NodeFunction:
		ev.funcs[n.Str()] = n
		return 0
	case parse.NodeArithCommand:
		v, err := fm.arith(body[0].Str())
		if err != nil {
			fm.errorf("lsh", "%v", err)
			return 1
		}
		if v == "0" {
			return 1
		}
		return 0
	}
	logger.Println("unexpected node", n.Kind)
	return 1
}

// Splits the children of a compound command into the body and the
// redirections that follow it.
func splitRedirs(n *parse.Node) (body, redirs []*parse.Node) {
	switch n.Kind {
	case parse.NodeCommand, parse.NodeList, parse.NodeFunction:
		return n.Children, nil
	}
	i := len(n.Children)
	for i > 0 && n.Children[i-1].Kind == parse.NodeRedirect {
		i--
	}
	return n.Children[:i], n.Children[i:]
}

func (fm *Frame) execList(n *parse.Node) int {
	ev := fm.ev
	status := 0
	for _, cmd := range n.Children {
		if ev.flow != flowNone {
			break
		}
		if fm.interrupted() {
			return 130
		}
		status = fm.exec(cmd)
		ev.setStatus(status)
		if status != 0 && ev.Options.Errexit && ev.condDepth == 0 &&
			cmd.Kind != parse.NodeAnd && cmd.Kind != parse.NodeOr && cmd.Kind != parse.NodeNot &&
			ev.flow == flowNone {
			ev.flow = flowExit
			ev.exitStatus = status
		}
	}
	return status
}

// Runs a command whose status is tested, where "set -e" does not apply.
func (fm *Frame) cond(n *parse.Node) int {
	fm.ev.condDepth++
	defer func() { fm.ev.condDepth-- }()
	status := fm.exec(n)
	fm.ev.setStatus(status)
	return status
}

func (fm *Frame) execBackground(n *parse.Node) int {
	if n.Kind == parse.NodePipe {
		fm.execPipeline(n.Children, true, n)
	} else {
		fm.execPipeline([]*parse.Node{n}, true, n)
	}
	return 0
}

// Runs a simple command.
func (fm *Frame) execCommand(n *parse.Node) int {
	ev := fm.ev
	assigns, words, redirs := commandParts(n)
	ev.substStatus = 0
	argv, pairs, err := fm.expandCommand(assigns, words)
	if err != nil {
		fm.errorf("lsh", "%v", err)
		return 1
	}
	if ev.Options.Xtrace && len(pairs)+len(argv) > 0 {
		fm.trace(pairs, argv)
	}

	if len(argv) == 0 {
		for _, p := range pairs {
			name, value := splitPair(p)
			if err := ev.Set(name, value); err != nil {
				fm.errorf("lsh", "%v", err)
				return 1
			}
		}
		if len(redirs) > 0 {
			_, cleanup, err := fm.redirect(redirs)
			if err != nil {
				fm.errorf("lsh", "%v", err)
				return 1
			}
			cleanup()
		}
		return ev.substStatus
	}

	newFm := fm
	if len(redirs) > 0 {
		var cleanup func()
		newFm, cleanup, err = fm.redirect(redirs)
		if err != nil {
			fm.errorf("lsh", "%v", err)
			return 1
		}
		defer cleanup()
	}

	name := argv[0]
	if b, ok := ev.Builtins[name]; ok {
		// Assignments before a builtin stay in effect.
		for _, p := range pairs {
			name, value := splitPair(p)
			ev.Set(name, value)
		}
		return b.Invoke(newFm, argv)
	}
	if fn, ok := ev.funcs[name]; ok {
		restore := fm.tempAssign(pairs)
		defer restore()
		return newFm.callFunction(fn, argv)
	}
	p, status, ok := newFm.externalProc(argv, pairs)
	if !ok {
		return status
	}
	return newFm.launch([]procSpec{p}, false, n)
}

// Splits the children of a simple command by kind.
func commandParts(n *parse.Node) (assigns, words, redirs []*parse.Node) {
	for _, ch := range n.Children {
		switch ch.Kind {
		case parse.NodeAssignment:
			assigns = append(assigns, ch)
		case parse.NodeWord:
			words = append(words, ch)
		case parse.NodeRedirect:
			redirs = append(redirs, ch)
		}
	}
	return assigns, words, redirs
}

// Expands the words of a simple command to fields, and its assignments to
// "name=value" pairs.
func (fm *Frame) expandCommand(assigns, words []*parse.Node) ([]string, []string, error) {
	argv, err := fm.expandWords(words)
	if err != nil {
		return nil, nil, err
	}
	pairs := make([]string, 0, len(assigns))
	for _, a := range assigns {
		name, value, err := fm.expandAssignment(a)
		if err != nil {
			return nil, nil, err
		}
		pairs = append(pairs, name+"="+value)
	}
	return argv, pairs, nil
}

// Writes an xtrace line.
func (fm *Frame) trace(pairs, argv []string) {
	var sb strings.Builder
	sb.WriteString("+ ")
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		name, value := splitPair(p)
		sb.WriteString(name + "=" + parse.Quote(value))
	}
	if len(argv) > 0 {
		if len(pairs) > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(parse.QuoteAll(argv))
	}
	sb.WriteByte('\n')
	if f := fm.Err(); f != nil {
		f.WriteString(sb.String())
	}
}

func splitPair(p string) (string, string) {
	i := strings.IndexByte(p, '=')
	return p[:i], p[i+1:]
}

// Sets variables for the duration of a function call, and returns a function
// restoring the old values.
func (fm *Frame) tempAssign(pairs []string) func() {
	ev := fm.ev
	type saved struct {
		name, value string
		ok          bool
	}
	var olds []saved
	for _, p := range pairs {
		name, value := splitPair(p)
		old, ok := ev.Get(name)
		olds = append(olds, saved{name, old, ok})
		ev.Set(name, value)
	}
	return func() {
		for i := len(olds) - 1; i >= 0; i-- {
			if olds[i].ok {
				ev.Set(olds[i].name, olds[i].value)
			} else {
				ev.Unset(olds[i].name)
			}
		}
	}
}

func (fm *Frame) callFunction(fn *parse.Node, argv []string) int {
	ev := fm.ev
	savedArgs, savedLoop := ev.args, ev.loopDepth
	ev.args = argv[1:]
	ev.loopDepth = 0
	ev.funcDepth++
	defer func() {
		ev.args, ev.loopDepth = savedArgs, savedLoop
		ev.funcDepth--
	}()
	status := fm.exec(fn.Child(0))
	if ev.flow == flowReturn {
		ev.flow = flowNone
		status = ev.exitStatus
	}
	return status
}

// Resolves an external command. If it cannot be found or run, the error is
// printed and ok is false.
func (fm *Frame) externalProc(argv, pairs []string) (p procSpec, status int, ok bool) {
	path, err := fsutil.Search(argv[0])
	if err != nil {
		fm.errorf(argv[0], "%v", errReason(err))
		if errors.Is(err, fsutil.ErrNotFound) {
			return p, 127, false
		}
		return p, 126, false
	}
	return procSpec{
		path: path, argv: argv, env: fm.ev.environ(pairs),
		files: append([]*os.File(nil), fm.files...), pgid: -1, tty: -1,
	}, 0, true
}

func errReason(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}

// Runs the body of a loop once, and reports whether the loop should stop.
func (fm *Frame) loopBody(body *parse.Node) (int, bool) {
	ev := fm.ev
	ev.loopDepth++
	status := fm.exec(body)
	ev.loopDepth--
	switch ev.flow {
	case flowBreak:
		ev.flowLevels--
		if ev.flowLevels <= 0 {
			ev.flow = flowNone
		}
		return status, true
	case flowContinue:
		ev.flowLevels--
		if ev.flowLevels <= 0 {
			ev.flow = flowNone
			return status, false
		}
		return status, true
	case flowReturn, flowExit:
		return status, true
	}
	return status, fm.interrupted()
}

// Returns the loop variable, the items and the body of a for or select loop.
// Without "in", the items are the positional parameters.
func (fm *Frame) loopItems(children []*parse.Node) (string, []string, *parse.Node, error) {
	name := children[0].Str()
	if children[1].Kind == parse.NodeWordList {
		items, err := fm.expandWords(children[1].Children)
		return name, items, children[2], err
	}
	return name, append([]string(nil), fm.ev.args...), children[1], nil
}

func (fm *Frame) execFor(children []*parse.Node) int {
	name, items, body, err := fm.loopItems(children)
	if err != nil {
		fm.errorf("lsh", "%v", err)
		return 1
	}
	status := 0
	for _, item := range items {
		if err := fm.ev.Set(name, item); err != nil {
			fm.errorf("for", "%v", err)
			return 1
		}
		var stop bool
		status, stop = fm.loopBody(body)
		if stop {
			break
		}
	}
	return status
}

func (fm *Frame) execArithFor(children []*parse.Node) int {
	init, test, step, body := children[0], children[1], children[2], children[3]
	eval := func(n *parse.Node) (string, bool) {
		if strings.TrimSpace(n.Str()) == "" {
			return "1", true
		}
		v, err := fm.arith(n.Str())
		if err != nil {
			fm.errorf("lsh", "%v", err)
			return "", false
		}
		return v, true
	}
	if _, ok := eval(init); !ok {
		return 1
	}
	status := 0
	for {
		v, ok := eval(test)
		if !ok {
			return 1
		}
		if v == "0" {
			break
		}
		var stop bool
		status, stop = fm.loopBody(body)
		if stop {
			break
		}
		if _, ok := eval(step); !ok {
			return 1
		}
	}
	return status
}

func (fm *Frame) execWhile(test, body *parse.Node, while bool) int {
	ev := fm.ev
	status := 0
	for {
		t := fm.cond(test)
		if ev.flow != flowNone || fm.interrupted() || (t == 0) != while {
			break
		}
		var stop bool
		status, stop = fm.loopBody(body)
		if stop {
			break
		}
	}
	return status
}

func (fm *Frame) execIf(children []*parse.Node) int {
	for i := 0; i+1 < len(children); i += 2 {
		c := fm.cond(children[i])
		if fm.ev.flow != flowNone {
			return c
		}
		if c == 0 {
			return fm.exec(children[i+1])
		}
	}
	if len(children)%2 == 1 {
		return fm.exec(children[len(children)-1])
	}
	return 0
}

func (fm *Frame) execCase(children []*parse.Node) int {
	subject, err := fm.expandString(children[0])
	if err != nil {
		fm.errorf("lsh", "%v", err)
		return 1
	}
	items := children[1:]
	for i, item := range items {
		matched, err := fm.caseMatches(item.Child(0), subject)
		if err != nil {
			fm.errorf("lsh", "%v", err)
			return 1
		}
		if !matched {
			continue
		}
		status := 0
		// ";&" falls through to the next body without testing its patterns.
		for _, it := range items[i:] {
			status = fm.exec(it.Child(1))
			if it.Str() != ";&" || fm.ev.flow != flowNone {
				break
			}
		}
		return status
	}
	return 0
}

func (fm *Frame) caseMatches(patterns *parse.Node, subject string) (bool, error) {
	for _, w := range patterns.Children {
		pat, err := fm.expandPattern(w)
		if err != nil {
			return false, err
		}
		if glob.Match(pat, subject) {
			return true, nil
		}
	}
	return false, nil
}

func (fm *Frame) execSelect(children []*parse.Node) int {
	ev := fm.ev
	name, items, body, err := fm.loopItems(children)
	if err != nil {
		fm.errorf("lsh", "%v", err)
		return 1
	}
	if len(items) == 0 {
		return 0
	}
	errw := fm.Err()
	if errw == nil {
		errw = os.Stderr
	}
	in := byteReader{fm.In()}
	status := 0
	showMenu := true
	for {
		if showMenu {
			_, cols := sys.WinSize(errw)
			writeMenu(errw, items, cols)
		}
		prompt, ok := ev.Get(env.PS3)
		if !ok {
			prompt = "#? "
		}
		io.WriteString(errw, prompt)
		line, err := readLine(in)
		if err != nil {
			io.WriteString(errw, "\n")
			return 1
		}
		ev.Set(env.REPLY, line)
		if line == "" {
			showMenu = true
			continue
		}
		showMenu = false
		choice := ""
		if i, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && 1 <= i && i <= len(items) {
			choice = items[i-1]
		}
		if err := ev.Set(name, choice); err != nil {
			fm.errorf("select", "%v", err)
			return 1
		}
		var stop bool
		status, stop = fm.loopBody(body)
		if stop {
			break
		}
	}
	return status
}

// Writes the menu of a select loop in columns filled top to bottom, fitting
// the width of the terminal when it is known.
func writeMenu(w io.Writer, items []string, width int) {
	entries := make([]string, len(items))
	maxLen := 0
	for i, item := range items {
		entries[i] = strconv.Itoa(i+1) + ") " + item
		if len(entries[i]) > maxLen {
			maxLen = len(entries[i])
		}
	}
	if width <= 0 {
		width = 80
	}
	colWidth := maxLen + 2
	cols := width / colWidth
	if cols < 1 {
		cols = 1
	}
	rows := (len(entries) + cols - 1) / cols
	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := c*rows + r
			if i >= len(entries) {
				break
			}
			if c > 0 {
				sb.WriteString(strings.Repeat(" ", colWidth-len(entries[i-rows])))
			}
			sb.WriteString(entries[i])
		}
		sb.WriteByte('\n')
	}
	io.WriteString(w, sb.String())
}

// Reads a line without the newline. Reading happens one byte at a time, so
// that input after the line is left to the next command.
func readLine(r io.ByteReader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		if b == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}

// Reads from a file one byte per read call.
type byteReader struct{ f *os.File }

func (r byteReader) ReadByte() (byte, error) {
	if r.f == nil {
		return 0, io.EOF
	}
	var buf [1]byte
	for {
		n, err := r.f.Read(buf[:])
		if n == 1 {
			return buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

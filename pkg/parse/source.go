package parse

// Source describes a piece of source code.
type Source struct {
	// Name is "[tty]" for interactive input, "code from -c" for -c, or the
	// path of a script file.
	Name   string
	Code   string
	IsFile bool
}

// SourceForTest returns a Source used for testing.
func SourceForTest(code string) Source {
	return Source{Name: "[test]", Code: code}
}

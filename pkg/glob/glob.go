// Package glob implements pathname expansion and the pattern matching of
// case items.
//
// Patterns use "*", "?" and bracket expressions such as "[a-z]" and
// "[!0-9]". A backslash quotes the character after it.
package glob

import (
	"os"
	"strings"
	"unicode/utf8"
)

// Glob calls cb with each path matching the pattern p, in lexical order. If
// cb returns false, globbing stops and Glob returns false.
func Glob(p string, cb func(string) bool) bool {
	return Parse(p).Glob(cb)
}

// Glob calls cb with each path matching the Pattern.
func (p Pattern) Glob(cb func(string) bool) bool {
	segs := p.Segments
	dir := ""
	if len(segs) > 0 && IsSlash(segs[0]) {
		segs = segs[1:]
		dir = "/"
	}
	return glob(segs, dir, cb)
}

// Match returns whether the whole of s matches pattern. Unlike in pathname
// expansion, slashes and leading dots are not special.
func Match(pattern, s string) bool {
	segs := Parse(pattern).Segments
	for i, seg := range segs {
		if IsSlash(seg) {
			segs[i] = Literal{"/"}
		}
	}
	return matchElement(segs, s, true)
}

// Quote escapes the characters of s that are special in patterns.
func Quote(s string) string {
	if !strings.ContainsAny(s, `\*?[`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '*', '?', '[':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// glob finds all filenames matching the given Segments in the given dir, and
// calls the callback on all of them. If the callback returns false, globbing
// is interrupted, and glob returns false. Otherwise it returns true.
func glob(segs []Segment, dir string, cb func(string) bool) bool {
	// Consume non-wildcard path elements simply by following the path. This
	// is required for "." and ".." to be used as path elements, as they do
	// not appear in the result of ReadDir.
	for len(segs) > 1 && IsLiteral(segs[0]) && IsSlash(segs[1]) {
		dir += segs[0].(Literal).Data + "/"
		segs = segs[2:]
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return true
		}
	}

	if len(segs) == 0 {
		return cb(dir)
	} else if len(segs) == 1 && IsLiteral(segs[0]) {
		path := dir + segs[0].(Literal).Data
		if _, err := os.Lstat(path); err == nil {
			return cb(path)
		}
		return true
	}

	i := 0
	for i < len(segs) && !IsSlash(segs[i]) {
		i++
	}
	first, rest := segs[:i], segs[i:]

	entries, err := readDir(dir)
	if err != nil {
		// Unreadable directories match nothing.
		return true
	}
	for _, entry := range entries {
		name := entry.Name()
		if !matchElement(first, name, false) {
			continue
		}
		if len(rest) == 0 {
			if !cb(dir + name) {
				return false
			}
			continue
		}
		if info, err := os.Stat(dir + name); err == nil && info.IsDir() {
			if !glob(rest[1:], dir+name+"/", cb) {
				return false
			}
		}
	}
	return true
}

// readDir is just like os.ReadDir except that it treats an argument of "" as
// ".".
func readDir(dir string) ([]os.DirEntry, error) {
	if dir == "" {
		dir = "."
	}
	return os.ReadDir(dir)
}

// matchElement matches a path element against segments, which may not
// contain any Slash segments. Names starting with "." are only matched by a
// literal "." unless matchHidden is true.
func matchElement(segs []Segment, name string, matchHidden bool) bool {
	if len(segs) == 0 {
		return name == ""
	}
	if !matchHidden && len(name) > 0 && name[0] == '.' {
		if _, ok := segs[0].(Wild); ok {
			return false
		}
	}
segs:
	for len(segs) > 0 {
		// Find a chunk. A chunk is an optional Star followed by a run of
		// fixed-length segments (Literal, Question and Bracket).
		var i int
		for i = 1; i < len(segs); i++ {
			if IsWild1(segs[i], Star) {
				break
			}
		}

		chunk := segs[:i]
		startsWithStar := IsWild1(chunk[0], Star)
		if startsWithStar {
			chunk = chunk[1:]
		}
		segs = segs[i:]

		// Match at the current position. If this is the last chunk, we need to
		// make sure name is exhausted by the matching.
		ok, rest := matchFixedLength(chunk, name)
		if ok && (rest == "" || len(segs) > 0) {
			name = rest
			continue
		}

		if startsWithStar {
			for i, r := range name {
				// Match name[:j] with the starting *, and the rest with chunk.
				j := i + utf8.RuneLen(r)
				ok, rest := matchFixedLength(chunk, name[j:])
				if ok && (rest == "" || len(segs) > 0) {
					name = rest
					continue segs
				}
			}
		}
		return false
	}
	return name == ""
}

// matchFixedLength returns whether a run of fixed-length segments matches a
// prefix of name. It returns whether the match is successful and if it is,
// the remaining part of name.
func matchFixedLength(segs []Segment, name string) (bool, string) {
	for _, seg := range segs {
		switch seg := seg.(type) {
		case Literal:
			n := len(seg.Data)
			if len(name) < n || name[:n] != seg.Data {
				return false, ""
			}
			name = name[n:]
		case Wild:
			if name == "" {
				return false, ""
			}
			r, n := utf8.DecodeRuneInString(name)
			if !seg.Match(r) {
				return false, ""
			}
			name = name[n:]
		default:
			panic("matchFixedLength given slash segment")
		}
	}
	return true, name
}

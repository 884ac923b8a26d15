package parse

import "strings"

// Quote returns a word that expands to exactly s. If s only contains
// characters that are never special, it is returned as is; otherwise it is
// single-quoted.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	bare := true
	for i := 0; i < len(s); i++ {
		if !allowedBare(s[i]) {
			bare = false
			break
		}
	}
	if bare && reservedWords[s] == 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteAll quotes each string and joins them with spaces.
func QuoteAll(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = Quote(s)
	}
	return strings.Join(quoted, " ")
}

func allowedBare(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		strings.IndexByte("-_./,:@%+", c) >= 0
}

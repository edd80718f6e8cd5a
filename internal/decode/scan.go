package decode

import (
	"strings"
	"unicode/utf8"
)

// Class is a set of significant characters a Scanner looks for.
type Class uint8

const (
	ClassOpenBrace Class = 1 << iota
	ClassCloseBrace
	ClassBacktick
	ClassEOL

	ClassBraces = ClassOpenBrace | ClassCloseBrace
)

// Scanner finds the next significant character in buffered text.
// The zero value matches nothing.
type Scanner struct {
	chars string
}

// NewScanner returns a Scanner matching every character in classes.
func NewScanner(classes Class) Scanner {
	var sb strings.Builder
	if classes&ClassOpenBrace != 0 {
		sb.WriteByte('{')
	}
	if classes&ClassCloseBrace != 0 {
		sb.WriteByte('}')
	}
	if classes&ClassBacktick != 0 {
		sb.WriteByte('`')
	}
	if classes&ClassEOL != 0 {
		sb.WriteByte('\n')
	}
	return Scanner{chars: sb.String()}
}

// Next returns the index (relative to text, not from) of the first
// significant character at or after from, and the character itself.
// It returns -1 when none is found.
func (s Scanner) Next(text string, from int) (int, byte) {
	if from >= len(text) || s.chars == "" {
		return -1, 0
	}
	var i int
	if len(s.chars) == 1 {
		i = strings.IndexByte(text[from:], s.chars[0])
	} else {
		i = strings.IndexAny(text[from:], s.chars)
	}
	if i < 0 {
		return -1, 0
	}
	return from + i, text[from+i]
}

// completeUTF8 returns the length of the longest prefix of s that does not
// end inside an incomplete multi-byte sequence.
func completeUTF8(s string) int {
	n := len(s)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if !utf8.RuneStart(s[i]) {
			continue
		}
		if utf8.FullRuneInString(s[i:]) {
			return n
		}
		return i
	}
	return n
}

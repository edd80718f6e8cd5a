package decode

import "strings"

// fenceState is the mode of the fence classifier.
type fenceState int

const (
	stateToplevel fenceState = iota // plain text
	stateInCode                     // inside ``` ... ```
)

const (
	fenceMarker = "```"
	fenceSpace  = " \t\r\f\v"
)

// FenceClassifier splits markdown-like text into alternating toplevel and
// fenced code sections.
//
// A fence is a line made of exactly three backticks at column zero,
// optionally followed (when opening) by a single bare word naming the
// language. Longer backtick runs never toggle the mode. Content that might
// still turn out to be a fence is held back until the line disambiguates it;
// everything else is emitted as fragment tokens as soon as it arrives.
type FenceClassifier struct {
	lines *LineAssembler
	state fenceState
	lang  string

	// Bytes of the current partial line already emitted as fragments.
	emitted int
}

// NewFenceClassifier creates a classifier in toplevel mode.
func NewFenceClassifier() *FenceClassifier {
	return &FenceClassifier{lines: NewLineAssembler()}
}

// Feed classifies delta, which need not be line aligned.
func (c *FenceClassifier) Feed(delta string) []Token {
	var out []Token
	for _, line := range c.lines.Feed(delta) {
		out = c.appendLine(out, line)
	}
	return c.appendPartial(out)
}

// Finalize flushes the unterminated last line and closes an open code
// section with a synthetic fence.
func (c *FenceClassifier) Finalize() []Token {
	var out []Token
	for _, line := range c.lines.Finalize() {
		out = c.appendLine(out, line)
	}
	if c.state == stateInCode {
		out = append(out, Token{Kind: TokenFenceClose, Lang: c.lang, Synthetic: true})
	}
	c.Reset()
	return out
}

// Reset returns the classifier to its construction state.
func (c *FenceClassifier) Reset() {
	c.lines.Reset()
	c.state = stateToplevel
	c.lang = ""
	c.emitted = 0
}

func (c *FenceClassifier) section() SectionKind {
	if c.state == stateInCode {
		return SectionCode
	}
	return SectionToplevel
}

// appendLine classifies one complete line.
func (c *FenceClassifier) appendLine(out []Token, line Line) []Token {
	if isFenceLine(line.Text, c.state) {
		// Nothing of a fence line is ever emitted early: every prefix of a
		// fence line is a possible fence, so emitted is still zero here.
		switch c.state {
		case stateToplevel:
			c.state = stateInCode
			c.lang = fenceLang(line.Text)
			out = append(out, Token{Kind: TokenFenceOpen, Text: line.Text, EOL: line.EOL, Lang: c.lang})
		case stateInCode:
			out = append(out, Token{Kind: TokenFenceClose, Text: line.Text, EOL: line.EOL, Lang: c.lang})
			c.state = stateToplevel
			c.lang = ""
		}
		c.emitted = 0
		return out
	}

	frag := line.Text[c.emitted:]
	if line.EOL {
		frag += "\n"
	}
	kind := c.section()
	if frag != "" {
		out = append(out, Token{Kind: TokenFragment, Section: kind, Text: frag, Lang: c.lang})
	}
	c.emitted = 0
	return append(out, Token{Kind: TokenLine, Section: kind, Text: line.Text, EOL: line.EOL, Lang: c.lang})
}

// appendPartial emits whatever part of the buffered partial line can no
// longer become a fence.
func (c *FenceClassifier) appendPartial(out []Token) []Token {
	rest := c.lines.Rest()
	if rest == "" || couldBeFence(rest, c.state) {
		return out
	}
	safe := completeUTF8(rest)
	if safe <= c.emitted {
		return out
	}
	out = append(out, Token{Kind: TokenFragment, Section: c.section(), Text: rest[c.emitted:safe], Lang: c.lang})
	c.emitted = safe
	return out
}

// couldBeFence reports whether s is a prefix of some line that would toggle
// the mode in state. The property is prefix closed: once false for a partial
// line it stays false however the line continues.
func couldBeFence(s string, state fenceState) bool {
	ticks := len(s) - len(strings.TrimLeft(s, "`"))
	switch {
	case ticks < len(fenceMarker):
		return ticks == len(s)
	case ticks > len(fenceMarker):
		return false
	}

	info := s[len(fenceMarker):]
	if state == stateInCode {
		return strings.Trim(info, fenceSpace) == ""
	}

	word := strings.TrimLeft(info, fenceSpace)
	if i := strings.IndexAny(word, fenceSpace); i >= 0 {
		if strings.Trim(word[i:], fenceSpace) != "" {
			return false
		}
		word = word[:i]
	}
	return !strings.Contains(word, "`")
}

// isFenceLine reports whether a complete line toggles the mode in state.
func isFenceLine(line string, state fenceState) bool {
	return strings.HasPrefix(line, fenceMarker) && couldBeFence(line, state)
}

// fenceLang extracts the language tag of an opening fence line.
func fenceLang(line string) string {
	return strings.Trim(line[len(fenceMarker):], fenceSpace)
}

package decode

// bracketState is the phase of the bracket classifier.
type bracketState int

const (
	stateWaitOpen  bracketState = iota // outside any block, looking for '{'
	stateWaitClose                     // inside a block, tracking depth
)

// BracketClassifier extracts brace-delimited blocks from a text stream.
//
// Inside a block, every '{' starts a new content slice and every '}' ends
// one, so nested braces never close the block early. Only the '}' that
// brings the depth back to zero closes it. Text outside blocks is passed
// through as TokenText.
type BracketClassifier struct {
	open   Scanner
	braces Scanner

	state bracketState
	depth int
	first bool // the next content slice is the first of its block

	blocks int
	carry  string // incomplete UTF-8 sequence held for the next delta
}

// NewBracketClassifier creates a classifier waiting for '{'.
func NewBracketClassifier() *BracketClassifier {
	return &BracketClassifier{
		open:   NewScanner(ClassOpenBrace),
		braces: NewScanner(ClassBraces),
	}
}

// Depth returns the current nesting depth; zero outside a block.
func (c *BracketClassifier) Depth() int {
	return c.depth
}

// Blocks returns the number of blocks closed so far.
func (c *BracketClassifier) Blocks() int {
	return c.blocks
}

// Feed classifies delta.
func (c *BracketClassifier) Feed(delta string) []Token {
	text := delta
	if c.carry != "" {
		text = c.carry + delta
		c.carry = ""
	}
	// Braces are ASCII, so holding back a partial rune never hides one.
	n := completeUTF8(text)
	c.carry = text[n:]
	return c.scan(nil, text[:n])
}

// Finalize flushes held bytes and closes an unterminated block.
func (c *BracketClassifier) Finalize() []Token {
	out := c.scan(nil, c.carry)
	c.carry = ""
	if c.state == stateWaitClose {
		out = append(out, Token{Kind: TokenBracketClose, Synthetic: true})
		c.blocks++
	}
	blocks := c.blocks
	c.Reset()
	c.blocks = blocks
	return out
}

// Reset returns the classifier to its construction state.
func (c *BracketClassifier) Reset() {
	c.state = stateWaitOpen
	c.depth = 0
	c.first = false
	c.blocks = 0
	c.carry = ""
}

func (c *BracketClassifier) scan(out []Token, text string) []Token {
	start := 0 // start of the slice not yet emitted
	i := 0
	for i < len(text) {
		if c.state == stateWaitOpen {
			j, _ := c.open.Next(text, i)
			if j < 0 {
				break
			}
			if j > start {
				out = append(out, Token{Kind: TokenText, Text: text[start:j]})
			}
			out = append(out, Token{Kind: TokenBracketOpen})
			c.state = stateWaitClose
			c.depth = 1
			c.first = true
			start, i = j, j+1
			continue
		}

		j, ch := c.braces.Next(text, i)
		if j < 0 {
			break
		}
		if ch == '{' {
			if j > start {
				out = c.appendSlice(out, text[start:j], false)
			}
			c.depth++
			start, i = j, j+1
			continue
		}

		if c.depth > 1 {
			out = c.appendSlice(out, text[start:j+1], false)
			c.depth--
		} else {
			out = c.appendSlice(out, text[start:j+1], true)
			out = append(out, Token{Kind: TokenBracketClose})
			c.state = stateWaitOpen
			c.depth = 0
			c.blocks++
		}
		start, i = j+1, j+1
	}

	if start < len(text) {
		if c.state == stateWaitOpen {
			out = append(out, Token{Kind: TokenText, Text: text[start:]})
		} else {
			out = c.appendSlice(out, text[start:], false)
		}
	}
	return out
}

func (c *BracketClassifier) appendSlice(out []Token, text string, last bool) []Token {
	pos := PositionMiddle
	switch {
	case c.first && last:
		pos = PositionOnly
	case c.first:
		pos = PositionFirst
	case last:
		pos = PositionLast
	}
	c.first = false
	return append(out, Token{Kind: TokenBracketContent, Text: text, Position: pos, Depth: c.depth})
}

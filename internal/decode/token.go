package decode

// SectionKind identifies what a section holds.
type SectionKind string

const (
	SectionToplevel SectionKind = "toplevel"
	SectionCode     SectionKind = "code"
	SectionBracket  SectionKind = "bracket"
	SectionImage    SectionKind = "image"
)

// Position marks where a bracket content slice sits within its block.
type Position string

const (
	PositionFirst  Position = "first"
	PositionMiddle Position = "middle"
	PositionLast   Position = "last"
	PositionOnly   Position = "only" // first and last at once, e.g. "{}"
)

// TokenKind enumerates classifier outputs.
type TokenKind int

const (
	// TokenFragment is a sub-line slice of toplevel or code text.
	TokenFragment TokenKind = iota
	// TokenLine is a complete line of toplevel or code text.
	TokenLine
	TokenFenceOpen
	TokenFenceClose
	// TokenText is text outside any bracket block.
	TokenText
	TokenBracketOpen
	TokenBracketContent
	TokenBracketClose
)

var tokenKindNames = [...]string{
	TokenFragment:       "fragment",
	TokenLine:           "line",
	TokenFenceOpen:      "fence-open",
	TokenFenceClose:     "fence-close",
	TokenText:           "text",
	TokenBracketOpen:    "bracket-open",
	TokenBracketContent: "bracket-content",
	TokenBracketClose:   "bracket-close",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "unknown"
}

// Token is one unit of classifier output. Fields beyond Kind are set only
// where they apply.
type Token struct {
	Kind    TokenKind
	Section SectionKind // fragment and line tokens
	Text    string      // fragment, line, text and bracket content; raw fence line for fences
	EOL     bool        // line and fence tokens
	Lang    string      // code fragments, code lines and fences

	Position Position // bracket content
	Depth    int      // bracket content

	// Synthetic is set on closes produced by Finalize for blocks the input
	// never terminated.
	Synthetic bool
}

// Classifier turns raw deltas into tokens. Implementations are not safe for
// concurrent use.
type Classifier interface {
	Feed(delta string) []Token
	// Finalize flushes buffered input, closes anything left open and returns
	// the classifier to its initial state.
	Finalize() []Token
	Reset()
}

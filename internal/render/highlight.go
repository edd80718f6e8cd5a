package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlighter colours code lines for one fenced language.
type highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// newHighlighter returns a highlighter for a fence language tag, or nil if
// the language is not recognized.
func newHighlighter(lang, style string) *highlighter {
	if lang == "" {
		return nil
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return nil
	}
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	return &highlighter{lexer: chroma.Coalesce(lexer), style: s}
}

// line highlights a single line. Lines are tokenised on their own, so
// constructs spanning lines may be coloured imperfectly.
func (h *highlighter) line(s string) string {
	if h == nil {
		return s
	}
	it, err := h.lexer.Tokenise(nil, s)
	if err != nil {
		return s
	}
	var buf strings.Builder
	if err := (&fgFormatter{style: h.style}).Format(&buf, it); err != nil {
		return s
	}
	return buf.String()
}

// fgFormatter is a Chroma formatter that applies only foreground colours,
// leaving the terminal background alone.
type fgFormatter struct {
	style *chroma.Style
}

func (f *fgFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		value := strings.TrimRight(token.Value, "\n")
		if value == "" {
			continue
		}

		entry := f.style.Get(token.Type)
		var codes []string
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}

		if len(codes) > 0 {
			fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), value)
		} else {
			fmt.Fprint(w, value)
		}
	}
	return nil
}

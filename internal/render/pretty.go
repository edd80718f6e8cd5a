package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/samsaffron/blockstream/internal/decode"
)

const (
	defaultStyle = "dark"
	defaultWidth = 80
	codeStyle    = "monokai"
)

var (
	fenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	imageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	braceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	noiseStyle = lipgloss.NewStyle().Faint(true)
	blockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// Pretty renders events for a human: toplevel sections as markdown through
// glamour, code sections highlighted line by line as they arrive, and bracket
// blocks verbatim.
type Pretty struct {
	w     io.Writer
	color bool
	md    *glamour.TermRenderer

	text []string     // toplevel lines of the open section
	hl   *highlighter // open code section, nil if plain
	err  error        // first write error
}

// NewPretty creates a pretty printer. Without Color, markdown is rendered
// with glamour's notty style and code is left uncoloured.
func NewPretty(w io.Writer, opts Options) (*Pretty, error) {
	style := opts.Style
	switch {
	case !opts.Color:
		style = "notty"
	case style == "":
		style = defaultStyle
	}
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Pretty{w: w, color: opts.Color, md: md}, nil
}

func (p *Pretty) Write(_ context.Context, events []decode.Event) error {
	for _, e := range events {
		p.event(e)
		if p.err != nil {
			return p.err
		}
	}
	return nil
}

func (p *Pretty) event(e decode.Event) {
	switch e.Type {
	case decode.EventToplevelLine:
		p.text = append(p.text, e.Line)

	case decode.EventToplevelEnd:
		p.flushText()

	case decode.EventCodeBegin:
		p.flushText()
		fence := e.Fence
		if fence == "" {
			fence = "```" + e.Lang
		}
		p.println(p.style(fenceStyle, fence))
		if p.color {
			p.hl = newHighlighter(e.Lang, codeStyle)
		}

	case decode.EventCodeLine:
		p.println(p.hl.line(e.Line))

	case decode.EventCodeEnd:
		fence := e.Fence
		if e.Synthetic {
			fence = "``` (unterminated)"
		}
		p.println(p.style(fenceStyle, fence))
		p.hl = nil

	case decode.EventImage:
		p.flushText()
		p.println(p.style(imageStyle, imageLabel(e.Image)))

	case decode.EventTextFragment:
		// Sectionless fragments are the text around bracket blocks; fence
		// mode fragments are also delivered as lines and skipped here.
		if e.SectionID == 0 {
			p.print(p.style(noiseStyle, e.Text))
		}

	case decode.EventBracketData:
		p.print(p.style(braceStyle, e.Text))

	case decode.EventBracketClose:
		if e.Synthetic {
			p.print(p.style(fenceStyle, " (unterminated)"))
		}
		p.println("")

	case decode.EventBlockEnd:
		p.flushText()
		if e.Snapshot != nil {
			p.println(p.style(blockStyle, fmt.Sprintf("block %d: %d lines, %d bytes",
				e.BlockID, e.Snapshot.Total.Lines, e.Snapshot.Total.Bytes)))
		}

	case decode.EventBlockStats:
		if e.Snapshot != nil && e.Calculated != nil && p.err == nil {
			p.err = WriteStats(p.w, *e.Snapshot, e.Given, *e.Calculated)
		}
	}
}

// flushText renders the buffered toplevel lines as markdown.
func (p *Pretty) flushText() {
	if len(p.text) == 0 {
		return
	}
	src := strings.Join(p.text, "\n")
	p.text = p.text[:0]
	out, err := p.md.Render(src)
	if err != nil {
		out = src + "\n"
	}
	p.print(out)
}

func (p *Pretty) style(s lipgloss.Style, text string) string {
	if !p.color || text == "" {
		return text
	}
	return s.Render(text)
}

func (p *Pretty) print(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *Pretty) println(s string) {
	p.print(s + "\n")
}

func imageLabel(ref *decode.ImageRef) string {
	if ref == nil {
		return "[image]"
	}
	var details []string
	if ref.MimeType != "" {
		details = append(details, ref.MimeType)
	}
	if ref.Size > 0 {
		details = append(details, fmt.Sprintf("%d bytes", ref.Size))
	}
	if len(details) == 0 {
		return fmt.Sprintf("[image %s]", ref.URL)
	}
	return fmt.Sprintf("[image %s (%s)]", ref.URL, strings.Join(details, ", "))
}

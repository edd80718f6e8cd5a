package decode

// Line is one line of input. EOL reports whether a newline terminated it;
// only the last line of a stream can lack one. Only the "\n" is stripped: a
// CRLF line keeps its trailing "\r" in Text.
type Line struct {
	Text string
	EOL  bool
}

// LineAssembler splits arbitrarily chunked text into complete lines,
// carrying a trailing partial line over to the next chunk.
type LineAssembler struct {
	scan  Scanner
	rest  string
	count int
}

// NewLineAssembler creates an empty assembler.
func NewLineAssembler() *LineAssembler {
	return &LineAssembler{scan: NewScanner(ClassEOL)}
}

// Feed appends chunk and returns every line it completes. An empty chunk
// completes nothing but still advances the counter.
func (a *LineAssembler) Feed(chunk string) []Line {
	if a.scan == (Scanner{}) {
		a.scan = NewScanner(ClassEOL)
	}
	if chunk == "" {
		a.count++
		return nil
	}

	var lines []Line
	from := 0
	for {
		i, _ := a.scan.Next(chunk, from)
		if i < 0 {
			break
		}
		text := chunk[from:i]
		if a.rest != "" {
			text = a.rest + text
			a.rest = ""
		}
		lines = append(lines, Line{Text: text, EOL: true})
		a.count++
		from = i + 1
	}
	if from < len(chunk) {
		a.rest += chunk[from:]
	}
	return lines
}

// Rest returns the buffered partial line.
func (a *LineAssembler) Rest() string {
	return a.rest
}

// Count returns the line counter: one per completed line and one per empty
// chunk, so a keep-alive delta that carries no text is still accounted for.
func (a *LineAssembler) Count() int {
	return a.count
}

// Finalize flushes the partial line, if any, as a line without EOL.
func (a *LineAssembler) Finalize() []Line {
	if a.rest == "" {
		return nil
	}
	line := Line{Text: a.rest}
	a.rest = ""
	a.count++
	return []Line{line}
}

// Reset drops all buffered state.
func (a *LineAssembler) Reset() {
	a.rest = ""
	a.count = 0
}

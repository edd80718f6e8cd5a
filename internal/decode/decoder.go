// Package decode turns a stream of arbitrarily chunked LLM text deltas into
// an ordered sequence of structural events: toplevel text lines, fenced code
// blocks and brace-delimited blocks.
//
// A Decoder owns all state for one stream. It is fed synchronously, never
// blocks and never fails on malformed input: unterminated fences and blocks
// are closed when the stream is finalized. Every event gets the next sequence
// number of its stream at the moment it is produced.
package decode

import (
	"fmt"
	"strings"
	"time"
)

// section is the open toplevel, code or bracket section of a block.
type section struct {
	id     int
	kind   SectionKind
	lang   string
	lineNr int
	counts Counts
}

// Decoder accumulates classifier tokens into events for a single stream.
// It is not safe for concurrent use; decode concurrent streams with separate
// decoders (see Registry).
type Decoder struct {
	streamID  string
	mode      Mode
	fragments bool
	now       func() time.Time

	classifier Classifier
	stats      Aggregator

	seq         int64
	blockID     int
	blockOpen   bool
	lastSection int
	section     *section
}

// NewDecoder creates a decoder for streamID. An empty streamID gets a fresh
// random id.
func NewDecoder(streamID string, opts ...Option) *Decoder {
	d := &Decoder{
		mode: ModeFence,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	switch d.mode {
	case ModeBracket:
		d.classifier = NewBracketClassifier()
	default:
		d.mode = ModeFence
		d.classifier = NewFenceClassifier()
	}
	d.Reset(streamID)
	return d
}

// StreamID returns the stream the decoder is bound to.
func (d *Decoder) StreamID() string {
	return d.streamID
}

// Mode returns the classifier mode.
func (d *Decoder) Mode() Mode {
	return d.mode
}

// Seq returns the sequence number of the last emitted event.
func (d *Decoder) Seq() int64 {
	return d.seq
}

// Feed decodes one delta and returns the events it completes.
func (d *Decoder) Feed(streamID, delta string) ([]Event, error) {
	if err := d.check(streamID); err != nil {
		return nil, err
	}
	var out []Event
	for _, tok := range d.classifier.Feed(delta) {
		out = d.apply(out, tok)
	}
	return out, nil
}

// Finalize flushes all buffered input, closes open sections and ends the
// current block. The decoder can keep going afterwards; further input starts
// a new block.
func (d *Decoder) Finalize(streamID string) ([]Event, error) {
	if err := d.check(streamID); err != nil {
		return nil, err
	}
	var out []Event
	for _, tok := range d.classifier.Finalize() {
		out = d.apply(out, tok)
	}
	out = d.closeSection(out, false)
	return d.endBlock(out), nil
}

// Reset discards all state and rebinds the decoder to streamID without
// emitting anything. Sequence numbers restart.
func (d *Decoder) Reset(streamID string) {
	if streamID == "" {
		streamID = NewStreamID()
	}
	d.streamID = streamID
	d.classifier.Reset()
	d.stats.Reset()
	d.seq = 0
	d.blockID = 1
	d.blockOpen = false
	d.lastSection = 0
	d.section = nil
}

// CollectStats emits a block.stats snapshot without touching section state.
// Between blocks the event carries the id of the block that ended last.
func (d *Decoder) CollectStats() Event {
	calc := d.stats.Calculated()
	snap := d.stats.Snapshot()
	return d.event(EventBlockStats, func(e *Event) {
		if !d.blockOpen && d.blockID > 1 {
			e.BlockID = d.blockID - 1
		}
		e.Snapshot = &snap
		e.Given = d.stats.Given()
		e.Calculated = &calc
	})
}

// AddUsage sums a partial usage message into the calculated usage.
func (d *Decoder) AddUsage(u Usage) {
	d.stats.AddUsage(u)
}

// SetGivenUsage records the final usage reported by the transport.
func (d *Decoder) SetGivenUsage(u Usage) {
	d.stats.SetGivenUsage(u)
}

// Snapshot returns the cumulative statistics.
func (d *Decoder) Snapshot() Snapshot {
	return d.stats.Snapshot()
}

// AddImage emits an image event in a section of its own. Images bypass
// the classifier and leave any open text or code section untouched.
func (d *Decoder) AddImage(ref ImageRef) []Event {
	out := d.beginBlock(nil)
	d.lastSection++
	d.stats.AddImage(ref.Size)
	id := d.lastSection
	return append(out, d.event(EventImage, func(e *Event) {
		e.SectionID = id
		e.Image = &ref
		e.Stats = &Counts{Lines: 1, Bytes: ref.Size}
	}))
}

func (d *Decoder) check(streamID string) error {
	if streamID != d.streamID {
		return fmt.Errorf("decoder for %q called with %q: %w", d.streamID, streamID, ErrStreamMismatch)
	}
	return nil
}

// apply is the accumulator transition: it folds one token into the decoder
// state and appends the resulting events.
func (d *Decoder) apply(out []Event, tok Token) []Event {
	switch tok.Kind {
	case TokenFragment:
		if !d.fragments {
			return out
		}
		out = d.openSection(out, tok.Section, tok.Lang)
		typ := EventTextFragment
		if tok.Section == SectionCode {
			typ = EventCodeFragment
		}
		return append(out, d.sectionEvent(typ, func(e *Event) {
			e.Text = tok.Text
		}))

	case TokenLine:
		out = d.openSection(out, tok.Section, tok.Lang)
		s := d.section
		s.lineNr++
		s.counts.add(1, len(tok.Text))
		d.stats.AddLine(tok.Section, tok.Text)
		typ := EventToplevelLine
		if tok.Section == SectionCode {
			typ = EventCodeLine
		}
		return append(out, d.sectionEvent(typ, func(e *Event) {
			e.LineNr = s.lineNr
			e.Line = tok.Text
			e.EOL = tok.EOL
		}))

	case TokenFenceOpen:
		out = d.closeSection(out, false)
		d.stats.AddFence(tok.Text)
		return d.openFence(out, tok)

	case TokenFenceClose:
		if tok.Text != "" {
			d.stats.AddFence(tok.Text)
		}
		if d.section == nil || d.section.kind != SectionCode {
			out = d.openSection(out, SectionCode, tok.Lang)
		}
		return d.closeFence(out, tok)

	case TokenText:
		out = d.beginBlock(out)
		d.stats.AddText(SectionToplevel, tok.Text)
		return append(out, d.event(EventTextFragment, func(e *Event) {
			e.Text = tok.Text
		}))

	case TokenBracketOpen:
		out = d.closeSection(out, false)
		return d.openSection(out, SectionBracket, "")

	case TokenBracketContent:
		if d.section == nil || d.section.kind != SectionBracket {
			out = d.openSection(out, SectionBracket, "")
		}
		d.section.counts.add(strings.Count(tok.Text, "\n"), len(tok.Text))
		d.stats.AddText(SectionBracket, tok.Text)
		return append(out, d.sectionEvent(EventBracketData, func(e *Event) {
			e.Text = tok.Text
			e.Position = tok.Position
			e.Depth = tok.Depth
		}))

	case TokenBracketClose:
		if d.section == nil || d.section.kind != SectionBracket {
			out = d.openSection(out, SectionBracket, "")
		}
		out = d.closeSection(out, tok.Synthetic)
		return d.endBlock(out)
	}
	return out
}

// beginBlock emits block.begin the first time content arrives for a block.
func (d *Decoder) beginBlock(out []Event) []Event {
	if d.blockOpen {
		return out
	}
	d.blockOpen = true
	d.lastSection = 0
	return append(out, d.event(EventBlockBegin, nil))
}

// endBlock emits block.end with the full snapshot and both usages.
func (d *Decoder) endBlock(out []Event) []Event {
	if !d.blockOpen {
		return out
	}
	snap := d.stats.Snapshot()
	calc := d.stats.Calculated()
	out = append(out, d.event(EventBlockEnd, func(e *Event) {
		e.Snapshot = &snap
		e.Given = d.stats.Given()
		e.Calculated = &calc
	}))
	d.blockOpen = false
	d.blockID++
	return out
}

// openSection makes sure a section of kind is open, closing any other.
func (d *Decoder) openSection(out []Event, kind SectionKind, lang string) []Event {
	if d.section != nil && d.section.kind == kind {
		return out
	}
	out = d.closeSection(out, false)
	out = d.beginBlock(out)
	d.lastSection++
	d.section = &section{id: d.lastSection, kind: kind, lang: lang}
	return append(out, d.sectionEvent(beginType(kind), nil))
}

func (d *Decoder) openFence(out []Event, tok Token) []Event {
	out = d.beginBlock(out)
	d.lastSection++
	d.section = &section{id: d.lastSection, kind: SectionCode, lang: tok.Lang}
	return append(out, d.sectionEvent(EventCodeBegin, func(e *Event) {
		e.Fence = tok.Text
		e.EOL = tok.EOL
	}))
}

func (d *Decoder) closeFence(out []Event, tok Token) []Event {
	counts := d.section.counts
	out = append(out, d.sectionEvent(EventCodeEnd, func(e *Event) {
		e.Fence = tok.Text
		e.EOL = tok.EOL
		e.Synthetic = tok.Synthetic
		e.Stats = &counts
	}))
	d.section = nil
	return out
}

// closeSection emits the end event of the open section, if any.
func (d *Decoder) closeSection(out []Event, synthetic bool) []Event {
	if d.section == nil {
		return out
	}
	counts := d.section.counts
	out = append(out, d.sectionEvent(endType(d.section.kind), func(e *Event) {
		e.Synthetic = synthetic
		e.Stats = &counts
	}))
	d.section = nil
	return out
}

// event stamps a new event with the stream, block, next seq and time.
func (d *Decoder) event(typ EventType, fill func(*Event)) Event {
	d.seq++
	e := Event{
		Type:      typ,
		StreamID:  d.streamID,
		BlockID:   d.blockID,
		Seq:       d.seq,
		Timestamp: d.now(),
	}
	if fill != nil {
		fill(&e)
	}
	return e
}

// sectionEvent is event plus the open section's id and language.
func (d *Decoder) sectionEvent(typ EventType, fill func(*Event)) Event {
	s := d.section
	return d.event(typ, func(e *Event) {
		e.SectionID = s.id
		if s.kind == SectionCode {
			e.Lang = s.lang
		}
		if fill != nil {
			fill(e)
		}
	})
}

func beginType(kind SectionKind) EventType {
	switch kind {
	case SectionCode:
		return EventCodeBegin
	case SectionBracket:
		return EventBracketOpen
	}
	return EventToplevelBegin
}

func endType(kind SectionKind) EventType {
	switch kind {
	case SectionCode:
		return EventCodeEnd
	case SectionBracket:
		return EventBracketClose
	}
	return EventToplevelEnd
}

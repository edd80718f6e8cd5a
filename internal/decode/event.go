package decode

import (
	"strings"
	"time"
)

// EventType discriminates decoder events.
type EventType string

const (
	EventBlockBegin    EventType = "block.begin"
	EventBlockEnd      EventType = "block.end"
	EventBlockStats    EventType = "block.stats"
	EventToplevelBegin EventType = "toplevel.begin"
	EventToplevelLine  EventType = "toplevel.line"
	EventToplevelEnd   EventType = "toplevel.end"
	EventCodeBegin     EventType = "code.begin"
	EventCodeLine      EventType = "code.line"
	EventCodeEnd       EventType = "code.end"
	EventImage         EventType = "image"
	EventTextFragment  EventType = "text.fragment"
	EventCodeFragment  EventType = "code.fragment"
	EventBracketOpen   EventType = "bracket.open"
	EventBracketData   EventType = "bracket.content"
	EventBracketClose  EventType = "bracket.close"
)

// IsFragment reports whether t is a sub-line fragment event.
func (t EventType) IsFragment() bool {
	return t == EventTextFragment || t == EventCodeFragment
}

// ImageRef points at an image delivered out of band.
type ImageRef struct {
	URL      string `json:"url" yaml:"url"`
	MimeType string `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
	Size     int    `json:"size,omitempty" yaml:"size,omitempty"`
}

// Event is one decoder output, serialisable as a flat record.
type Event struct {
	Type      EventType `json:"type" yaml:"type"`
	StreamID  string    `json:"streamId" yaml:"streamId"`
	BlockID   int       `json:"blockId" yaml:"blockId"`
	SectionID int       `json:"sectionId,omitempty" yaml:"sectionId,omitempty"`
	Seq       int64     `json:"seq" yaml:"seq"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	Lang   string `json:"lang,omitempty" yaml:"lang,omitempty"`
	LineNr int    `json:"lineNr,omitempty" yaml:"lineNr,omitempty"`
	// Line is the line without its "\n"; a "\r" before it is kept.
	Line string `json:"line,omitempty" yaml:"line,omitempty"`
	EOL  bool   `json:"eol,omitempty" yaml:"eol,omitempty"`

	// Text is the content of fragment and bracket content events.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	// Fence is the raw fence line consumed by code.begin and code.end.
	Fence string `json:"fence,omitempty" yaml:"fence,omitempty"`

	Position  Position `json:"position,omitempty" yaml:"position,omitempty"`
	Depth     int      `json:"depth,omitempty" yaml:"depth,omitempty"`
	Synthetic bool     `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`

	Stats      *Counts   `json:"stats,omitempty" yaml:"stats,omitempty"`
	Snapshot   *Snapshot `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Given      *Usage    `json:"given,omitempty" yaml:"given,omitempty"`
	Calculated *Usage    `json:"calculated,omitempty" yaml:"calculated,omitempty"`
	Image      *ImageRef `json:"image,omitempty" yaml:"image,omitempty"`
}

// JoinLines rebuilds the input of a fence mode stream from its line events
// and the fence lines carried by code.begin and code.end.
func JoinLines(events []Event) string {
	var sb strings.Builder
	for _, e := range events {
		switch e.Type {
		case EventToplevelLine, EventCodeLine:
			writeLine(&sb, e.Line, e.EOL)
		case EventCodeBegin, EventCodeEnd:
			writeLine(&sb, e.Fence, e.EOL)
		}
	}
	return sb.String()
}

// JoinFragments rebuilds the input from fragment, bracket content and fence
// events. It applies to bracket mode and to fence mode with fragments on.
func JoinFragments(events []Event) string {
	var sb strings.Builder
	for _, e := range events {
		switch e.Type {
		case EventTextFragment, EventCodeFragment, EventBracketData:
			sb.WriteString(e.Text)
		case EventCodeBegin, EventCodeEnd:
			writeLine(&sb, e.Fence, e.EOL)
		}
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, text string, eol bool) {
	sb.WriteString(text)
	if eol {
		sb.WriteByte('\n')
	}
}

package decode

import "strings"

// Counts holds line and byte totals. For line based sections Bytes excludes
// the newline that terminated each line.
type Counts struct {
	Lines int `json:"lines" yaml:"lines"`
	Bytes int `json:"bytes" yaml:"bytes"`
}

func (c *Counts) add(lines, bytes int) {
	c.Lines += lines
	c.Bytes += bytes
}

// Snapshot is the cumulative statistics of a stream. Total also counts fence
// lines, which belong to neither toplevel nor code.
type Snapshot struct {
	Toplevel Counts `json:"toplevel" yaml:"toplevel"`
	Code     Counts `json:"code" yaml:"code"`
	Image    Counts `json:"image" yaml:"image"`
	Total    Counts `json:"total" yaml:"total"`
}

// Usage captures token usage reported by the transport.
type Usage struct {
	PromptTokens     int `json:"promptTokens" yaml:"promptTokens"`
	CompletionTokens int `json:"completionTokens" yaml:"completionTokens"`
	TotalTokens      int `json:"totalTokens" yaml:"totalTokens"`
}

// Add returns the field-wise sum of u and o. A message that omits its total
// contributes prompt plus completion tokens instead.
func (u Usage) Add(o Usage) Usage {
	total := o.TotalTokens
	if total == 0 {
		total = o.PromptTokens + o.CompletionTokens
	}
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + total,
	}
}

// Aggregator accumulates per-category statistics and token usage for one
// stream.
//
// Partial usage messages are summed into the calculated total. A final usage
// message is kept verbatim as the given usage and never summed; both are
// reported so consumers can spot disagreement.
type Aggregator struct {
	snap       Snapshot
	given      *Usage
	calculated Usage
}

// AddLine records one complete line of the given kind.
func (a *Aggregator) AddLine(kind SectionKind, text string) {
	a.category(kind).add(1, len(text))
	a.snap.Total.add(1, len(text))
}

// AddText records raw text that is not line assembled. Its newlines count
// as lines and as bytes.
func (a *Aggregator) AddText(kind SectionKind, text string) {
	lines := strings.Count(text, "\n")
	a.category(kind).add(lines, len(text))
	a.snap.Total.add(lines, len(text))
}

// AddFence records a fence line consumed by a mode transition.
func (a *Aggregator) AddFence(raw string) {
	a.snap.Total.add(1, len(raw))
}

// AddImage records one image of size bytes.
func (a *Aggregator) AddImage(size int) {
	a.snap.Image.add(1, size)
	a.snap.Total.add(1, size)
}

// AddUsage sums a partial usage message into the calculated total.
func (a *Aggregator) AddUsage(u Usage) {
	a.calculated = a.calculated.Add(u)
}

// SetGivenUsage stores the final usage reported by the transport.
func (a *Aggregator) SetGivenUsage(u Usage) {
	a.given = &u
}

// Snapshot returns the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	return a.snap
}

// Given returns a copy of the given usage, or nil if none was reported.
func (a *Aggregator) Given() *Usage {
	if a.given == nil {
		return nil
	}
	u := *a.given
	return &u
}

// Calculated returns the summed usage.
func (a *Aggregator) Calculated() Usage {
	return a.calculated
}

// Reset clears all counters.
func (a *Aggregator) Reset() {
	*a = Aggregator{}
}

func (a *Aggregator) category(kind SectionKind) *Counts {
	switch kind {
	case SectionCode, SectionBracket:
		return &a.snap.Code
	case SectionImage:
		return &a.snap.Image
	default:
		return &a.snap.Toplevel
	}
}

package decode

import (
	"reflect"
	"testing"
)

func feedAll(c Classifier, chunks ...string) []Token {
	var out []Token
	for _, s := range chunks {
		out = append(out, c.Feed(s)...)
	}
	return append(out, c.Finalize()...)
}

func TestFenceClassifierTokens(t *testing.T) {
	got := feedAll(NewFenceClassifier(), "```js\nx\n```\n")
	want := []Token{
		{Kind: TokenFenceOpen, Text: "```js", EOL: true, Lang: "js"},
		{Kind: TokenFragment, Section: SectionCode, Text: "x\n", Lang: "js"},
		{Kind: TokenLine, Section: SectionCode, Text: "x", EOL: true, Lang: "js"},
		{Kind: TokenFenceClose, Text: "```", EOL: true, Lang: "js"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens:\n got %+v\nwant %+v", got, want)
	}
}

func TestFenceClassifierHoldsPossibleFence(t *testing.T) {
	c := NewFenceClassifier()
	if got := c.Feed("``"); len(got) != 0 {
		t.Fatalf("emitted possible fence prefix: %+v", got)
	}
	if got := c.Feed("`x"); len(got) != 0 {
		t.Fatalf("emitted possible opening fence: %+v", got)
	}
	got := c.Feed(" y")
	want := []Token{{Kind: TokenFragment, Section: SectionToplevel, Text: "```x y"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got := c.Feed("z"); !reflect.DeepEqual(got, []Token{{Kind: TokenFragment, Section: SectionToplevel, Text: "z"}}) {
		t.Errorf("continuation: %+v", got)
	}
	if c.state != stateToplevel {
		t.Error("two-word info string opened a code section")
	}
}

func TestFenceClassifierFourBackticks(t *testing.T) {
	c := NewFenceClassifier()
	got := c.Feed("````")
	if len(got) != 1 || got[0].Kind != TokenFragment || got[0].Text != "````" {
		t.Fatalf("four backticks should stream as text, got %+v", got)
	}
}

func TestFenceClassifierSyntheticClose(t *testing.T) {
	c := NewFenceClassifier()
	c.Feed("```go\nfunc")
	if c.state != stateInCode || c.lang != "go" {
		t.Fatalf("state=%v lang=%q", c.state, c.lang)
	}
	got := c.Finalize()
	last := got[len(got)-1]
	if last.Kind != TokenFenceClose || !last.Synthetic || last.Lang != "go" {
		t.Errorf("last token %+v, want synthetic close", last)
	}
	if c.state != stateToplevel {
		t.Error("Finalize left the classifier in code")
	}
}

func TestCouldBeFence(t *testing.T) {
	tests := []struct {
		in    string
		state fenceState
		want  bool
	}{
		{"", stateToplevel, true},
		{"`", stateToplevel, true},
		{"```", stateToplevel, true},
		{"```python", stateToplevel, true},
		{"```python ", stateToplevel, true},
		{"```python x", stateToplevel, false},
		{"```a`b", stateToplevel, false},
		{"````", stateToplevel, false},
		{"x", stateToplevel, false},
		{" ```", stateToplevel, false},
		{"```", stateInCode, true},
		{"```  \t", stateInCode, true},
		{"```js", stateInCode, false},
	}
	for _, tt := range tests {
		if got := couldBeFence(tt.in, tt.state); got != tt.want {
			t.Errorf("couldBeFence(%q, %d) = %v, want %v", tt.in, tt.state, got, tt.want)
		}
	}
}

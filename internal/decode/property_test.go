package decode

import (
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"unicode/utf8"
)

// corpus returns the inputs every property is checked against: the files
// under testdata plus a few hand-written edge cases.
func corpus(t *testing.T) map[string]string {
	t.Helper()
	inputs := map[string]string{
		"scenario":     "Hello\n```js\nconst x=1;\n```\nBye",
		"backticks":    "``\n`\n```\n````\n``x``\n",
		"unicode":      "日本語\n```漢字\n🚀 ünïcödé\n```\n",
		"empty lines":  "\n\n\n```\n\n```\n\n",
		"fence at eof": "text\n```",
		"bare":         "no newline at all",
	}
	files, err := filepath.Glob(filepath.Join("testdata", "*"))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		inputs[filepath.Base(f)] = string(data)
	}
	return inputs
}

func TestConservationRandomSplits(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for name, input := range corpus(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 40; i++ {
				chunks := splitRandom(r, input, 1+i%9)

				fence := decodeChunks(t, chunks, WithFragments())
				if got := JoinLines(fence); got != input {
					t.Fatalf("split %d: JoinLines mismatch\n got %q\nwant %q", i, got, input)
				}
				if got := JoinFragments(fence); got != input {
					t.Fatalf("split %d: JoinFragments mismatch\n got %q\nwant %q", i, got, input)
				}
				assertSeq(t, fence)

				bracket := decodeChunks(t, chunks, WithMode(ModeBracket))
				if got := JoinFragments(bracket); got != input {
					t.Fatalf("split %d: bracket JoinFragments mismatch\n got %q\nwant %q", i, got, input)
				}
				assertSeq(t, bracket)
			}
		})
	}
}

func TestFragmentsAreValidUTF8(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for name, input := range corpus(t) {
		if !utf8.ValidString(input) {
			continue
		}
		for i := 0; i < 20; i++ {
			chunks := splitRandom(r, input, 3)
			for _, opts := range [][]Option{{WithFragments()}, {WithMode(ModeBracket)}} {
				for _, e := range decodeChunks(t, chunks, opts...) {
					text := e.Text + e.Line
					if !utf8.ValidString(text) {
						t.Fatalf("%s: %s carries invalid UTF-8 %q", name, e.Type, text)
					}
				}
			}
		}
	}
}

func TestChunkBoundaryInvariance(t *testing.T) {
	for name, input := range corpus(t) {
		t.Run(name, func(t *testing.T) {
			whole := decodeChunks(t, []string{input})
			for _, size := range []int{1, 2, 1000} {
				got := decodeChunks(t, splitEvery(input, size))
				if !reflect.DeepEqual(got, whole) {
					t.Errorf("size %d: events differ from whole-input decode\n got %v\nwant %v", size, eventTypes(got), eventTypes(whole))
				}
			}
		})
	}
}

func TestChunkBoundaryInvarianceWithFragments(t *testing.T) {
	strip := func(events []Event) []Event {
		out := withoutFragments(events)
		for i := range out {
			out[i].Seq = 0
		}
		return out
	}
	for name, input := range corpus(t) {
		t.Run(name, func(t *testing.T) {
			whole := strip(decodeChunks(t, []string{input}, WithFragments()))
			for _, size := range []int{1, 2, 1000} {
				got := strip(decodeChunks(t, splitEvery(input, size), WithFragments()))
				if !reflect.DeepEqual(got, whole) {
					t.Errorf("size %d: non-fragment events differ\n got %v\nwant %v", size, eventTypes(got), eventTypes(whole))
				}
			}
		})
	}
}

func TestFencePairsShareLanguage(t *testing.T) {
	for name, input := range corpus(t) {
		events := decodeChunks(t, splitEvery(input, 2))
		open := map[int]string{}
		for _, e := range events {
			switch e.Type {
			case EventCodeBegin:
				open[e.SectionID] = e.Lang
			case EventCodeEnd:
				lang, ok := open[e.SectionID]
				if !ok {
					t.Fatalf("%s: code.end for unopened section %d", name, e.SectionID)
				}
				if lang != e.Lang {
					t.Errorf("%s: section %d opened as %q closed as %q", name, e.SectionID, lang, e.Lang)
				}
				delete(open, e.SectionID)
			case EventBlockEnd:
				if len(open) != 0 {
					t.Errorf("%s: block ended with open code sections %v", name, open)
				}
			}
		}
	}
}

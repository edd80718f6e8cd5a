package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samsaffron/blockstream/internal/config"
	"github.com/samsaffron/blockstream/internal/decode"
	"github.com/samsaffron/blockstream/internal/testutil"
)

func TestApplyDecodeFlags(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"mode", "chunk-size"} {
			decodeCmd.Flags().Lookup(name).Changed = false
		}
		decodeMode, decodeChunkSize = "", 0
	})

	c := config.Default()
	c.Input.Seed = 9
	if err := decodeCmd.Flags().Set("mode", "bracket"); err != nil {
		t.Fatal(err)
	}
	if err := decodeCmd.Flags().Set("chunk-size", "5"); err != nil {
		t.Fatal(err)
	}
	applyDecodeFlags(decodeCmd, c)

	if c.Decode.Mode != "bracket" || c.Input.ChunkSize != 5 {
		t.Errorf("flags not applied: %+v", c)
	}
	if c.Input.Seed != 9 {
		t.Errorf("unset flag overrode config seed: %d", c.Input.Seed)
	}
}

func TestOpenSourceChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.md")
	if err := os.WriteFile(path, []byte("abcdefgh"), 0644); err != nil {
		t.Fatal(err)
	}
	src, err := openSource(context.Background(), path, config.InputConfig{ChunkSize: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var chunks []string
	for {
		d, err := src.Recv()
		if err != nil {
			break
		}
		chunks = append(chunks, d.Text)
	}
	if strings.Join(chunks, "|") != "abc|def|gh" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestOutputSinkDefaultsToJSONOffTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sink, err := outputSink(f, config.OutputConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(context.Background(), []decode.Event{{Type: decode.EventBlockBegin, StreamID: "s", BlockID: 1, Seq: 1}}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("output is not JSON: %q", data)
	}
	if rec["type"] != "block.begin" {
		t.Errorf("record = %v", rec)
	}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []decode.Option
	}{
		{"fence", "a\n```go\nb\n```\nc", nil},
		{"bracket", "x {y {z}} w", []decode.Option{decode.WithMode(decode.ModeBracket)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := testutil.Decode(t, "s", []string{tt.input}, tt.opts...)
			if got := reconstruct(events); got != tt.input {
				t.Errorf("reconstruct = %q, want %q", got, tt.input)
			}
		})
	}
}

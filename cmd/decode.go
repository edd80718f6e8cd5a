package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samsaffron/blockstream/internal/config"
	"github.com/samsaffron/blockstream/internal/decode"
	"github.com/samsaffron/blockstream/internal/eventlog"
	"github.com/samsaffron/blockstream/internal/render"
	"github.com/samsaffron/blockstream/internal/source"
)

var (
	decodeMode         string
	decodeFragments    bool
	decodeChunkSize    int
	decodeRandomChunks bool
	decodeMaxChunk     int
	decodeSeed         int64
	decodeFormat       string
	decodeStore        bool
	decodeStats        bool
	decodeFollow       bool
	decodeScript       bool
	decodeStreamID     string
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file|-]",
	Short: "Decode text into block events",
	Long: `Decode a file or stdin as if it arrived as a stream of deltas.

The input is cut into chunks (--chunk-size, or random sizes with
--random-chunks) and fed to the decoder one chunk at a time. Events are
written to stdout as JSON lines, YAML documents, msgpack or styled text.

With --script the input is a JSON-lines transcript of transport messages
({"text":...}, {"usage":{...}}, {"given":{...}}, {"image":{...}}) instead
of plain text. Records with a "stream" field are decoded as separate
streams; the rest go to --stream-id.

Examples:
  blockstream decode answer.md
  blockstream decode answer.md --chunk-size 1 --fragments
  blockstream decode transcript.jsonl --script --stats
  blockstream decode --follow /tmp/stream.log --format pretty`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVarP(&decodeMode, "mode", "m", "", "Classifier: fence or bracket (default from config)")
	decodeCmd.Flags().BoolVar(&decodeFragments, "fragments", false, "Emit fragment events before lines complete")
	decodeCmd.Flags().IntVarP(&decodeChunkSize, "chunk-size", "c", 0, "Bytes per delta (0 = 4096)")
	decodeCmd.Flags().BoolVar(&decodeRandomChunks, "random-chunks", false, "Use random delta sizes of 1..max-chunk bytes")
	decodeCmd.Flags().IntVar(&decodeMaxChunk, "max-chunk", 0, "Largest random delta size")
	decodeCmd.Flags().Int64Var(&decodeSeed, "seed", 0, "Seed for --random-chunks")
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", "", "Output format: json, yaml, msgpack or pretty")
	decodeCmd.Flags().BoolVar(&decodeStore, "store", false, "Persist events to the event store")
	decodeCmd.Flags().BoolVar(&decodeStats, "stats", false, "Emit a block.stats event after the stream ends")
	decodeCmd.Flags().BoolVarP(&decodeFollow, "follow", "F", false, "Keep reading as the file grows until interrupted")
	decodeCmd.Flags().BoolVar(&decodeScript, "script", false, "Read a JSON-lines transcript of deltas")
	decodeCmd.Flags().StringVar(&decodeStreamID, "stream-id", "", "Stream id (default: random UUID)")
}

// applyDecodeFlags copies explicitly set flags over the loaded config.
func applyDecodeFlags(cmd *cobra.Command, c *config.Config) {
	if flagChanged(cmd, "mode") {
		c.Decode.Mode = decodeMode
	}
	if flagChanged(cmd, "fragments") {
		c.Decode.Fragments = decodeFragments
	}
	if flagChanged(cmd, "chunk-size") {
		c.Input.ChunkSize = decodeChunkSize
	}
	if flagChanged(cmd, "random-chunks") {
		c.Input.RandomChunks = decodeRandomChunks
	}
	if flagChanged(cmd, "max-chunk") {
		c.Input.MaxChunk = decodeMaxChunk
	}
	if flagChanged(cmd, "seed") {
		c.Input.Seed = decodeSeed
	}
	if flagChanged(cmd, "format") {
		c.Output.Format = decodeFormat
	}
	if decodeStore {
		c.Store.Enabled = true
	}
}

func runDecode(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyDecodeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := decode.ParseMode(cfg.Decode.Mode)
	if err != nil {
		return err
	}
	opts := []decode.Option{decode.WithMode(mode)}
	if cfg.Decode.Fragments {
		opts = append(opts, decode.WithFragments())
	}
	reg := decode.NewRegistry(opts...)

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	src, err := openSource(ctx, path, cfg.Input)
	if err != nil {
		return err
	}

	out, err := outputSink(os.Stdout, cfg.Output)
	if err != nil {
		src.Close()
		return err
	}
	store, err := eventlog.NewStore(cfg.Store)
	if err != nil {
		src.Close()
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()
	sink := decode.MultiSink(out, store)

	slog.Debug("decoding", "mode", mode, "path", path, "script", decodeScript)
	if decodeScript {
		// Transcript records may name their stream.
		err = decode.PumpStreams(ctx, src, reg, decodeStreamID, sink)
	} else {
		err = decode.Pump(ctx, src, reg.Open(decodeStreamID), sink)
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Interrupted: everything buffered has been flushed by the pump.
		slog.Debug("decode interrupted")
		err = nil
	}
	if err != nil {
		return err
	}

	for _, id := range reg.IDs() {
		d, err := reg.Get(id)
		if err != nil {
			return err
		}
		if decodeStats {
			if err := sink.Write(context.WithoutCancel(ctx), []decode.Event{d.CollectStats()}); err != nil {
				return err
			}
		}
		if cfg.Store.Enabled {
			fmt.Fprintf(os.Stderr, "stream %s stored\n", d.StreamID())
		}
	}
	return nil
}

// openSource picks the Source for path: stdin for "-", a tailing reader
// with --follow, a transcript with --script, otherwise a chunked file.
func openSource(ctx context.Context, path string, in config.InputConfig) (decode.Source, error) {
	sizer := source.Fixed(in.ChunkSize)
	if in.RandomChunks {
		sizer = source.Random(in.Seed, in.MaxChunk)
	}

	if decodeFollow {
		if path == "-" {
			return nil, fmt.Errorf("--follow needs a file path")
		}
		return source.NewFollow(ctx, path, sizer)
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	if decodeScript {
		return source.NewScript(ctx, r), nil
	}
	return source.NewReader(ctx, r, sizer), nil
}

// outputSink builds the renderer for stdout. With no format configured a
// terminal gets pretty output and a pipe gets JSON lines.
func outputSink(w *os.File, out config.OutputConfig) (decode.Sink, error) {
	tty := term.IsTerminal(int(w.Fd()))
	format := render.Format(out.Format)
	if format == "" {
		format = render.FormatJSON
		if tty {
			format = render.FormatPretty
		}
	}
	f, err := render.ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	return render.New(w, f, render.Options{Style: out.Style, Width: out.Width, Color: tty})
}

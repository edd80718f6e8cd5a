package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samsaffron/blockstream/internal/decode"
	"github.com/samsaffron/blockstream/internal/eventlog"
)

var (
	replayFormat string
	replayText   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <stream-id>",
	Short: "Print the stored events of a stream",
	Long: `Replay events persisted by 'blockstream decode --store'.

Examples:
  blockstream replay 5f0c...                  # events as JSON lines
  blockstream replay 5f0c... --format pretty
  blockstream replay 5f0c... --text           # reconstructed input text`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "", "Output format: json, yaml, msgpack or pretty")
	replayCmd.Flags().BoolVar(&replayText, "text", false, "Print the reconstructed input instead of events")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.Events(ctx, args[0])
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("stream %q not found", args[0])
	}

	if replayText {
		_, err := fmt.Fprint(os.Stdout, reconstruct(events))
		return err
	}

	if flagChanged(cmd, "format") {
		cfg.Output.Format = replayFormat
	}
	sink, err := outputSink(os.Stdout, cfg.Output)
	if err != nil {
		return err
	}
	return sink.Write(context.WithoutCancel(ctx), events)
}

// openStore opens the configured store even when persistence is off for
// decode, since reading back is always allowed.
func openStore() (eventlog.Store, error) {
	sc := cfg.Store
	sc.Enabled = true
	store, err := eventlog.NewStore(sc)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	return store, nil
}

// reconstruct rebuilds the decoded input. Line events cover fence mode;
// bracket mode streams only fragments.
func reconstruct(events []decode.Event) string {
	for _, e := range events {
		switch e.Type {
		case decode.EventToplevelLine, decode.EventCodeLine:
			return decode.JoinLines(events)
		}
	}
	return decode.JoinFragments(events)
}

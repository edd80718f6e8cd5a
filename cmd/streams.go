package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	streamsLimit int
	streamsJSON  bool
)

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "List stored streams",
	Long: `List streams persisted by 'blockstream decode --store', most recent first.

Examples:
  blockstream streams
  blockstream streams --limit 5 --json
  blockstream streams rm <stream-id>`,
	Args: cobra.NoArgs,
	RunE: runStreams,
}

var streamsRmCmd = &cobra.Command{
	Use:   "rm <stream-id>...",
	Short: "Delete stored streams",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStreamsRm,
}

func init() {
	rootCmd.AddCommand(streamsCmd)
	streamsCmd.AddCommand(streamsRmCmd)
	streamsCmd.Flags().IntVarP(&streamsLimit, "limit", "n", 20, "Maximum number of streams to list (0 = all)")
	streamsCmd.Flags().BoolVar(&streamsJSON, "json", false, "Output as JSON")
}

func runStreams(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	streams, err := store.Streams(cmd.Context(), streamsLimit)
	if err != nil {
		return err
	}

	if streamsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(streams)
	}
	if len(streams) == 0 {
		fmt.Fprintln(os.Stderr, "No stored streams. Use 'blockstream decode --store' to record one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STREAM\tEVENTS\tBLOCKS\tUPDATED")
	for _, s := range streams {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.ID, s.Events, s.Blocks, s.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runStreamsRm(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range args {
		if err := store.Delete(cmd.Context(), id); err != nil {
			return err
		}
	}
	return nil
}

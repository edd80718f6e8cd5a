package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samsaffron/blockstream/internal/config"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

var (
	logLevel string
	cfg      *config.Config
)

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")
}

var rootCmd = &cobra.Command{
	Use:   "blockstream",
	Short: "Decode streamed LLM output into structured block events",
	Long: `blockstream reads text as an LLM would stream it, in arbitrary chunks,
and emits ordered events for toplevel text lines, fenced code blocks and
brace-delimited blocks.

Examples:
  blockstream decode answer.md                  # JSON lines on stdout
  cat answer.md | blockstream decode --format pretty
  blockstream decode answer.md --random-chunks --seed 7
  blockstream decode --mode bracket tool-calls.txt
  blockstream decode --follow /tmp/stream.log --store

  blockstream streams                           # list stored streams
  blockstream replay <stream-id>                # replay stored events
  blockstream config init                       # write a default config`,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		setupLogging(cfg.Log.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// flagChanged reports whether the user set a flag explicitly, so that only
// explicit flags override config values.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

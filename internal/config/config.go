package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/samsaffron/blockstream/internal/decode"
	"github.com/samsaffron/blockstream/internal/eventlog"
	"github.com/samsaffron/blockstream/internal/render"
)

type Config struct {
	Decode DecodeConfig    `mapstructure:"decode" yaml:"decode"`
	Input  InputConfig     `mapstructure:"input" yaml:"input"`
	Output OutputConfig    `mapstructure:"output" yaml:"output"`
	Store  eventlog.Config `mapstructure:"store" yaml:"store"`
	Log    LogConfig       `mapstructure:"log" yaml:"log"`
}

// DecodeConfig selects the classifier and fragment events
type DecodeConfig struct {
	Mode      string `mapstructure:"mode" yaml:"mode"`           // fence or bracket
	Fragments bool   `mapstructure:"fragments" yaml:"fragments"` // emit sub-line fragment events
}

// InputConfig controls how input is cut into deltas
type InputConfig struct {
	ChunkSize    int   `mapstructure:"chunk_size" yaml:"chunk_size"`       // 0 = read in 4096 byte chunks
	RandomChunks bool  `mapstructure:"random_chunks" yaml:"random_chunks"` // random sizes of 1..max_chunk bytes
	MaxChunk     int   `mapstructure:"max_chunk" yaml:"max_chunk"`
	Seed         int64 `mapstructure:"seed" yaml:"seed"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // json, yaml, msgpack, pretty; empty = pretty on a terminal, json otherwise
	Style  string `mapstructure:"style" yaml:"style"`   // glamour style for pretty output
	Width  int    `mapstructure:"width" yaml:"width"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{Mode: string(decode.ModeFence)},
		Input:  InputConfig{MaxChunk: 16, Seed: 1},
		Output: OutputConfig{Style: "dark", Width: 80},
		Store:  eventlog.Config{MaxStreams: 500},
		Log:    LogConfig{Level: "warn"},
	}
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	// BLOCKSTREAM_DECODE_MODE=bracket overrides decode.mode
	v.SetEnvPrefix("BLOCKSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("decode.mode", def.Decode.Mode)
	v.SetDefault("decode.fragments", def.Decode.Fragments)
	v.SetDefault("input.chunk_size", def.Input.ChunkSize)
	v.SetDefault("input.random_chunks", def.Input.RandomChunks)
	v.SetDefault("input.max_chunk", def.Input.MaxChunk)
	v.SetDefault("input.seed", def.Input.Seed)
	v.SetDefault("output.format", def.Output.Format)
	v.SetDefault("output.style", def.Output.Style)
	v.SetDefault("output.width", def.Output.Width)
	v.SetDefault("store.enabled", def.Store.Enabled)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.max_streams", def.Store.MaxStreams)
	v.SetDefault("log.level", def.Log.Level)

	// Read config file (optional - won't error if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := decode.ParseMode(c.Decode.Mode); err != nil {
		return fmt.Errorf("decode.mode: %w", err)
	}
	if c.Output.Format != "" {
		if _, err := render.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("output.format: %w", err)
		}
	}
	if c.Input.ChunkSize < 0 {
		return fmt.Errorf("input.chunk_size: must not be negative, got %d", c.Input.ChunkSize)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// GetConfigDir returns the XDG config directory for blockstream.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "blockstream"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "blockstream"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes the config to disk
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`decode:
  # fence: markdown text with `+"```"+` code blocks
  # bracket: {...} blocks with any text in between
  mode: %s
  # emit text.fragment/code.fragment events before lines complete
  fragments: %t

input:
  # bytes per delta; 0 reads 4096 byte chunks
  chunk_size: %d
  # cut input into random 1..max_chunk byte deltas, reproducible by seed
  random_chunks: %t
  max_chunk: %d
  seed: %d

output:
  # json, yaml, msgpack or pretty; empty picks pretty on a terminal
  format: %q
  style: %s
  width: %d

store:
  # persist events to SQLite for the replay and streams commands
  enabled: %t
  # path: ~/.local/share/blockstream/events.db
  max_streams: %d

log:
  level: %s
`, cfg.Decode.Mode, cfg.Decode.Fragments,
		cfg.Input.ChunkSize, cfg.Input.RandomChunks, cfg.Input.MaxChunk, cfg.Input.Seed,
		cfg.Output.Format, cfg.Output.Style, cfg.Output.Width,
		cfg.Store.Enabled, cfg.Store.MaxStreams,
		cfg.Log.Level)

	return os.WriteFile(path, []byte(content), 0600)
}

// Package eventlog persists decoder events so streams can be listed and
// replayed after the fact.
package eventlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samsaffron/blockstream/internal/decode"
)

// Store is the interface for event persistence. Every Store is a
// decode.Sink: Write appends a batch of events.
type Store interface {
	Write(ctx context.Context, events []decode.Event) error

	// Events returns the events of a stream in seq order.
	Events(ctx context.Context, streamID string) ([]decode.Event, error)
	// Streams lists streams, most recently updated first. limit <= 0 means
	// no limit.
	Streams(ctx context.Context, limit int) ([]StreamSummary, error)
	Delete(ctx context.Context, streamID string) error

	Close() error
}

// StreamSummary describes one persisted stream.
type StreamSummary struct {
	ID        string    `json:"id" yaml:"id"`
	Events    int       `json:"events" yaml:"events"`
	Blocks    int       `json:"blocks" yaml:"blocks"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Config holds event store configuration.
type Config struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`         // Master switch
	Path       string `mapstructure:"path" yaml:"path"`               // Database file; empty means GetDBPath
	MaxStreams int    `mapstructure:"max_streams" yaml:"max_streams"` // Keep at most N streams (0=unlimited)
}

// GetDataDir returns the XDG data directory for blockstream.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "blockstream"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "blockstream"), nil
}

// GetDBPath returns the default path of the events database.
func GetDBPath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "events.db"), nil
}

// NewStore creates a Store based on the configuration.
// If the store is disabled, returns a no-op store.
func NewStore(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}

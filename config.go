// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/internal/notify"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned for configuration that cannot be used.
var ErrInvalidConfig = errors.New("engine: invalid config")

// Duration is a time.Duration written as a string such as "2ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the engine settings. The zero value is not valid; start
// from DefaultConfig.
type Config struct {
	// Backend names the driver backend. Empty uses the first registered
	// backend that initializes.
	Backend string `toml:"backend"`

	// FrameBudget bounds mesh cache maintenance per frame.
	FrameBudget Duration `toml:"frame_budget"`

	// TransactionTTL is how long queued mesh changes stay valid. Zero
	// never expires.
	TransactionTTL Duration `toml:"transaction_ttl"`

	NotifyWorkers int `toml:"notify_workers"`
	NotifyQueue   int `toml:"notify_queue"`

	// BufferPool is the number of released buffers the software backend
	// keeps per type and size class. Zero disables pooling.
	BufferPool int `toml:"buffer_pool"`

	// DebugTracker counts buffer allocations. MemoryBudget, when set,
	// also limits live buffer bytes and implies the tracker.
	DebugTracker bool   `toml:"debug_tracker"`
	MemoryBudget uint64 `toml:"memory_budget"`

	// Mapping is an optional YAML file mapping shader input names to
	// vertex components.
	Mapping string `toml:"mapping"`

	// LogLevel, when set and no logger is given, logs to stderr from that
	// level up.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		FrameBudget:   Duration(driver.DefaultFrameBudget),
		NotifyWorkers: notify.DefaultWorkers,
		NotifyQueue:   notify.DefaultQueue,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.FrameBudget <= 0:
		return fmt.Errorf("%w: frame_budget must be positive, got %v", ErrInvalidConfig, time.Duration(c.FrameBudget))
	case c.TransactionTTL < 0:
		return fmt.Errorf("%w: transaction_ttl must not be negative", ErrInvalidConfig)
	case c.NotifyWorkers < 0:
		return fmt.Errorf("%w: notify_workers must not be negative", ErrInvalidConfig)
	case c.NotifyQueue < 0:
		return fmt.Errorf("%w: notify_queue must not be negative", ErrInvalidConfig)
	case c.BufferPool < 0:
		return fmt.Errorf("%w: buffer_pool must not be negative", ErrInvalidConfig)
	}
	if _, err := c.level(); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// level parses LogLevel. An empty level is info.
func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return l, nil
	}
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// ParseConfig reads TOML settings over DefaultConfig. Unknown keys are
// rejected.
func ParseConfig(data []byte) (Config, error) {
	return decodeConfig(bytes.NewReader(data))
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is provided by the caller
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}
	defer func() { _ = f.Close() }()
	cfg, err := decodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteTo writes c as TOML.
func (c Config) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return 0, fmt.Errorf("engine: encode config: %w", err)
	}
	return buf.WriteTo(w)
}

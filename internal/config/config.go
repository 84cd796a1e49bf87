package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/ropekit/internal/logging"
)

// DefaultPath is the config file the CLI looks for when none is given.
const DefaultPath = "ropekit.toml"

// Config is the complete ropekit configuration.
type Config struct {
	Rope   RopeConfig   `toml:"rope"`
	Log    LogConfig    `toml:"log"`
	Script ScriptConfig `toml:"script"`
}

// RopeConfig configures rope construction.
type RopeConfig struct {
	// NodeSize is the leaf size for ropes built from strings.
	NodeSize int `toml:"node_size"`
	// MaxNodes caps live nodes per script run; 0 means unlimited.
	MaxNodes int `toml:"max_nodes"`
	// CheckInvariants validates the tree after every structural operation.
	CheckInvariants bool `toml:"check_invariants"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ScriptConfig configures the Lua host.
type ScriptConfig struct {
	// Timeout bounds a single script run.
	Timeout Duration `toml:"timeout"`
	// MaxOutput caps the bytes a script may print.
	MaxOutput int `toml:"max_output"`
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Rope: RopeConfig{
			NodeSize: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Script: ScriptConfig{
			Timeout:   Duration(5 * time.Second),
			MaxOutput: 1 << 20,
		},
	}
}

// Load reads configuration from path on top of the defaults and validates
// it. A file that does not exist yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that layer further
// overrides and validate once at the end.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return decode(path, data)
}

// LoadFromReader reads configuration from an io.Reader. Source names the
// input in error messages.
func LoadFromReader(r io.Reader, source string) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(source, data)
}

// parse decodes data over the defaults and validates the result.
func parse(source string, data []byte) (*Config, error) {
	cfg, err := decode(source, data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode decodes data over the defaults.
func decode(source string, data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, newParseError(source, err)
	}
	return cfg, nil
}

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}

	var missing *toml.StrictMissingError
	if errors.As(err, &missing) && len(missing.Errors) > 0 {
		first := missing.Errors[0]
		pe.Line, pe.Column = first.Position()
		pe.Message = fmt.Sprintf("unknown setting %q", strings.Join(first.Key(), "."))
		pe.Err = fmt.Errorf("%w: %w", ErrUnknownSetting, err)
		return pe
	}

	var de *toml.DecodeError
	if errors.As(err, &de) {
		pe.Line, pe.Column = de.Position()
	}
	return pe
}

// Validate checks every setting and returns the first problem as a
// *ValidationError.
func (c *Config) Validate() error {
	switch {
	case c.Rope.NodeSize <= 0:
		return &ValidationError{Path: "rope.node_size", Message: "must be positive", Value: c.Rope.NodeSize, Code: ErrCodeOutOfRange}
	case c.Rope.MaxNodes < 0:
		return &ValidationError{Path: "rope.max_nodes", Message: "must not be negative", Value: c.Rope.MaxNodes, Code: ErrCodeOutOfRange}
	case !logging.ValidLevel(c.Log.Level):
		return &ValidationError{Path: "log.level", Message: "must be debug, info, warn or error", Value: c.Log.Level, Code: ErrCodeInvalidEnum}
	case c.Log.Format != logging.FormatConsole && c.Log.Format != logging.FormatJSON:
		return &ValidationError{Path: "log.format", Message: "must be console or json", Value: c.Log.Format, Code: ErrCodeInvalidEnum}
	case c.Script.Timeout < 0:
		return &ValidationError{Path: "script.timeout", Message: "must not be negative", Value: c.Script.Timeout.Std(), Code: ErrCodeOutOfRange}
	case c.Script.MaxOutput < 0:
		return &ValidationError{Path: "script.max_output", Message: "must not be negative", Value: c.Script.MaxOutput, Code: ErrCodeOutOfRange}
	}
	return nil
}

// Logging converts the log section into a logger configuration writing
// to w.
func (c *Config) Logging(w io.Writer) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLogLevel(c.Log.Level)
	cfg.Format = c.Log.Format
	if w != nil {
		cfg.Output = w
	}
	return cfg
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	return enc.Encode(c)
}

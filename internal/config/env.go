package config

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "ROPEKIT_"

// LookupFunc reports the value of an environment variable.
// os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// envSetter applies one environment value to the config.
type envSetter struct {
	path string
	set  func(c *Config, value string) error
}

// envMapping returns the environment variable mappings.
func envMapping() map[string]envSetter {
	return map[string]envSetter{
		"ROPEKIT_NODE_SIZE":         {"rope.node_size", intSetter(func(c *Config) *int { return &c.Rope.NodeSize })},
		"ROPEKIT_MAX_NODES":         {"rope.max_nodes", intSetter(func(c *Config) *int { return &c.Rope.MaxNodes })},
		"ROPEKIT_CHECK_INVARIANTS":  {"rope.check_invariants", boolSetter(func(c *Config) *bool { return &c.Rope.CheckInvariants })},
		"ROPEKIT_LOG_LEVEL":         {"log.level", stringSetter(func(c *Config) *string { return &c.Log.Level })},
		"ROPEKIT_LOG_FORMAT":        {"log.format", stringSetter(func(c *Config) *string { return &c.Log.Format })},
		"ROPEKIT_SCRIPT_TIMEOUT":    {"script.timeout", durationSetter(func(c *Config) *Duration { return &c.Script.Timeout })},
		"ROPEKIT_SCRIPT_MAX_OUTPUT": {"script.max_output", intSetter(func(c *Config) *int { return &c.Script.MaxOutput })},
	}
}

// EnvVars returns the names of the environment variables ApplyEnv reads,
// sorted.
func EnvVars() []string {
	m := envMapping()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv overrides settings from the environment and revalidates.
// Note: Empty values are treated as unset.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if err := c.OverrideEnv(lookup); err != nil {
		return err
	}
	return c.Validate()
}

// OverrideEnv is ApplyEnv without the final validation. Values that do not
// parse are still reported.
func (c *Config) OverrideEnv(lookup LookupFunc) error {
	for _, name := range EnvVars() {
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		setter := envMapping()[name]
		if err := setter.set(c, value); err != nil {
			return &ValidationError{
				Path:    setter.path,
				Message: "cannot parse " + name + ": " + err.Error(),
				Value:   value,
				Code:    ErrCodeTypeMismatch,
			}
		}
	}
	return nil
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, s string) error {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on", "1":
			*field(c) = true
		case "false", "no", "off", "0":
			*field(c) = false
		default:
			return strconv.ErrSyntax
		}
		return nil
	}
}

func stringSetter(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, s string) error {
		*field(c) = strings.TrimSpace(s)
		return nil
	}
}

func durationSetter(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, s string) error {
		v, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*field(c) = Duration(v)
		return nil
	}
}

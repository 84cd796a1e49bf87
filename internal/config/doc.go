// Package config loads ropekit's settings.
//
// Settings come from three places, later ones overriding earlier:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← ROPEKIT_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← ropekit.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Command line flags are applied on top by the caller.
//
// # Basic Usage
//
//	cfg, err := config.Load("ropekit.toml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
//	    return err
//	}
//
// A missing file yields the defaults. Unknown keys are reported as a
// *ParseError; out-of-range values as a *ValidationError.
package config

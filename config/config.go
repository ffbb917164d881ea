// Package config holds the compile-time knobs spec.md §6 lists as
// "compile-time constants; no env/flag surface is mandated," made
// runtime-overridable the way kcptun's server/config.go does for its
// own knobs — sane defaults, JSON-overridable.
package config

import "encoding/json"
import "os"

// Config carries the session's tunable constants, per spec.md §6 and
// §4.5.
type Config struct {
	HeartbeatPeriodMS              int `json:"heartbeat_period_ms"`
	MaxHeartbeatTries              int `json:"max_heartbeat_tries"`
	MaxSessionConnectionAttempts   int `json:"max_session_connection_attempts"`
	MinSessionConnectionIntervalMS int `json:"min_session_connection_interval_ms"`
	MaxHeaderSize                  int `json:"max_header_size"`
	SubheaderSize                  int `json:"subheader_size"`

	// Stream sizing defaults. No package in this module reads them:
	// the session's Create*Stream calls take history and fragment size
	// as explicit arguments.
	History         int `json:"history"`
	MaxFragmentSize int `json:"max_fragment_size"`
}

// Default returns the knobs spec.md §6/§4.5 imply as sane constants.
func Default() *Config {
	return &Config{
		HeartbeatPeriodMS:              100,
		MaxHeartbeatTries:              5,
		MaxSessionConnectionAttempts:   5,
		MinSessionConnectionIntervalMS: 1000,
		MaxHeaderSize:                  8,
		SubheaderSize:                  4,
		History:                        8,
		MaxFragmentSize:                512,
	}
}

// Load reads a JSON config file, starting from Default and
// overwriting only the fields present in the file, grounded on
// server/config.go's parseJSONConfig.
func Load(path string) (*Config, error) {
	cfg := Default()
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

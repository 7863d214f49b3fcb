// Package config assembles runtime settings for the RunMate client from
// defaults, an optional JSON file, environment variables, and command-line
// flags, in that order of precedence.
package config

import "time"

// Config holds runtime settings for the RunMate client.
//
// Fields:
//   - APIBase: base URL of the concept API (host plus path prefix).
//   - RequestTimeout: per-request HTTP timeout. Generous by default since
//     some backend actions sit behind slow upstream generation.
//   - DataFile: path of the local sqlite file backing durable client state.
type Config struct {
	APIBase        string
	RequestTimeout time.Duration
	DataFile       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBase = "/api"
	c.RequestTimeout = 60 * time.Second
	c.DataFile = "runmate.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables, and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"os"
	"time"
)

// Environment variables recognized by the client.
const (
	EnvAPIBase        = "RUNMATE_API_BASE"
	EnvRequestTimeout = "RUNMATE_REQUEST_TIMEOUT"
	EnvDataFile       = "RUNMATE_DATA_FILE"
)

// parseEnv overlays Config with values from the environment. Unset variables
// leave the current value alone; a malformed timeout is ignored rather than
// aborting startup.
func parseEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIBase); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv(EnvRequestTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv(EnvDataFile); v != "" {
		cfg.DataFile = v
	}
}

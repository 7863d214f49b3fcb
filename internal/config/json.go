package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/runmateapp/runmate-client/internal/flagx"
	"github.com/runmateapp/runmate-client/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the timeout either as a string like
// "60s" or as integer nanoseconds. After parsing, values are copied into the
// runtime Config.
type jsonConfig struct {
	APIBase        string         `json:"api_base"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	DataFile       string         `json:"data_file"`
}

// parseJSON overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags; when absent, nothing is loaded.
// Read or unmarshal errors panic, matching the fail-fast bootstrap contract.
func parseJSON(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	var jc jsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBase != "" {
		cfg.APIBase = jc.APIBase
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.DataFile != "" {
		cfg.DataFile = jc.DataFile
	}
}

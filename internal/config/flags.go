package config

import (
	"flag"
	"os"
	"time"

	"github.com/runmateapp/runmate-client/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-b string   base URL of the concept API (default from Config)
//	-t int      request timeout in seconds (default from Config)
//	-f string   path of the local state file (default from Config)
//
// The function filters os.Args down to the flags it owns, using
// flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-b", "-t", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBase, "b", cfg.APIBase, "base URL of the concept API")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DataFile, "f", cfg.DataFile, "path of the local state file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}

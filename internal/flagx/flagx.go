// Package flagx helps packages parse their own command-line flags without
// tripping over flags owned by other packages: the args are filtered down to
// an allow-list before being handed to a flag.FlagSet.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns only those arguments that belong to the allowed flags,
// keeping their values. Two spellings are understood:
//
//	-f value      (value as the following argument)
//	--flag=value  (combined form)
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			// A following non-flag argument is this flag's value.
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

// ConfigFileFlag extracts the config file path given via -c or -config.
// Other arguments are left for their owners; absence yields "".
func ConfigFileFlag() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("configfile", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "path to config file")
	fs.StringVar(&config, "c", "", "path to config file (short)")
	_ = fs.Parse(args)

	return config
}

// Package flagx holds helpers for components that each parse only their own
// subset of the process command line.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs returns the arguments from args that belong to allowedFlags,
// together with their values.
//
// Supported forms:
//
//	-c conf.json        flag and value as separate arguments
//	--config=conf.json  flag and value joined by '='
//	--c conf.json       double-dash spelling of an allowed single-dash flag
//
// A following argument is taken as the value only if it does not start with
// '-'. Order is preserved and the result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, _, hasValue := strings.Cut(arg, "=")

		if !strings.HasPrefix(name, "-") || !isAllowed(allowed, name) {
			continue
		}

		filtered = append(filtered, arg)
		if hasValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

func isAllowed(allowed map[string]struct{}, name string) bool {
	if _, ok := allowed[name]; ok {
		return true
	}
	if strings.HasPrefix(name, "--") {
		_, ok := allowed[name[1:]]
		return ok
	}
	return false
}

// ConfigFileFlag extracts the config file path given via -c or -config from
// args. Other arguments are ignored. It returns "" when neither is present.
func ConfigFileFlag(args []string) string {
	var config string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}

// JsonConfigFlags is ConfigFileFlag over os.Args.
func JsonConfigFlags() string {
	return ConfigFileFlag(os.Args[1:])
}

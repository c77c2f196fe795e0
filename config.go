package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/hiproz/Xapiand/internal/config"
	"gopkg.in/yaml.v3"
)

const configUsage = `
Usage:	xio config [options]

   Shows the configuration of xio. When the configuration file does not exist,
   the default configuration is shown.

Options:
   -c, --config path    Path to the xio configuration file (overrides XIOCONFIG)
   -h, --help           Show usage information
   -o, --output format  Output format, one of: text, json, yaml
`

// configCommand implements the "config" command, the name config is taken
// by the configuration package.
func configCommand(ctx context.Context, args []string) error {
	output := outputFormat("text")

	flagSet := newFlagSet("xio config", configUsage)
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return usageError("xio config: unexpected arguments: %q", args)
	}

	c, err := config.LoadConfig()
	if err != nil {
		return err
	}

	switch output {
	case "json":
		return writeJSON(stdout, c)
	case "yaml":
		return writeYAML(stdout, c)
	default:
		r, _, err := config.OpenConfig()
		if err != nil {
			return err
		}
		defer r.Close()
		_, err = io.Copy(stdout, r)
		return err
	}
}

func writeJSON(w io.Writer, v any) error {
	e := json.NewEncoder(w)
	e.SetEscapeHTML(false)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(v); err != nil {
		return err
	}
	return e.Close()
}

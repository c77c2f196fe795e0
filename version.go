package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/hiproz/Xapiand/pkg/fdcheck"
)

const versionUsage = `
Usage:	xio version

Options:
   -h, --help  Show this usage information
`

func version(ctx context.Context, args []string) error {
	flagSet := newFlagSet("xio version", versionUsage)
	if _, err := parseFlags(flagSet, args); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "xio %s\n", currentVersion())
	return nil
}

func currentVersion() string {
	version := "devel"
	if info, ok := debug.ReadBuildInfo(); ok {
		switch info.Main.Version {
		case "":
		case "(devel)":
		default:
			version = info.Main.Version
		}
	}
	if fdcheck.Enabled {
		version += "+fdcheck"
	}
	return version
}

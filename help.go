package main

import (
	"context"
	"fmt"
)

const helpUsage = `
Usage:	xio <command> [options]

I/O Commands:
   probe    Exercise the system call wrappers on a file and a socket pair
   errno    Show how error numbers are classified

Other Commands:
   config   Show the xio configuration
   help     Show usage information about xio commands
   version  Show the xio version information

Global Options:
   -c, --config path  Path to the xio configuration file (overrides XIOCONFIG)
   -h, --help         Show usage information

For a description of each command, run 'xio help <command>'.`

func help(ctx context.Context, args []string) error {
	flagSet := newFlagSet("xio help", helpUsage)
	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	var cmd string
	var msg string

	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "config":
		msg = configUsage
	case "errno":
		msg = errnoUsage
	case "help", "":
		msg = helpUsage
	case "probe":
		msg = probeUsage
	case "version":
		msg = versionUsage
	default:
		fmt.Fprintf(stdout, "xio help %s: unknown command\n", cmd)
		return exitCode(1)
	}

	fmt.Fprintln(stdout, msg)
	return nil
}

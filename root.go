package main

// Notes on program structure
// --------------------------
//
// xio uses subcommands to invoke specific functionalities of the program.
// Each subcommand is implemented by a function named after the command, in a
// file of the same name (e.g. the "help" command is implemented by the help
// function in help.go).
//
// The usage message for each command is declared by a constant starting with
// the command name and followed by the suffix "Usage". For example, the usage
// message for the "help" command is declared by the constant helpUsage.
//
// The usage message contains a "Usage:	xio <command>" section presenting
// the structure of the command. Note the tabulation separating "Usage:" and
// "xio".
//
// Commands write to the stdout and stderr variables rather than to the os
// files directly so they can be invoked in-process by tests.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hiproz/Xapiand/internal/config"
	"golang.org/x/exp/slices"
)

const rootUsage = `xio - checked, interrupt-safe POSIX descriptor I/O

   xio exercises the system call wrappers used by the program: calls
   interrupted by signals are retried, the lifecycle of every file and socket
   descriptor can be validated to catch use-after-close, double close and
   file/socket confusion, and transient errors are classified by transport.

Example:

   $ xio errno --udp ECONNRESET
   ERRNO       NUMBER  IGNORED  DESCRIPTION
   ECONNRESET  104     yes      connection reset by peer

   $ xio probe --check --violation
   ...

For a list of commands available, run 'xio help'.`

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// root is the xio entrypoint.
func root(ctx context.Context, args ...string) int {
	if path, ok := os.LookupEnv("XIOCONFIG"); ok {
		config.ConfigPath = config.Path(path)
	}

	flagSet := newFlagSet("xio", helpUsage)
	if err := flagSet.Parse(args); err != nil {
		return exit(flagError(flagSet, err), "")
	}

	if args = flagSet.Args(); len(args) == 0 {
		fmt.Fprintln(stdout, rootUsage)
		return 0
	}

	cmd, args := args[0], args[1:]

	var err error
	switch cmd {
	case "config":
		err = configCommand(ctx, args)
	case "errno":
		err = errno(ctx, args)
	case "help":
		err = help(ctx, args)
	case "probe":
		err = probe(ctx, args)
	case "version":
		err = version(ctx, args)
	default:
		err = unknown(ctx, cmd)
	}
	return exit(err, cmd)
}

func exit(err error, cmd string) int {
	var code exitCode
	switch {
	case err == nil:
		return 0
	case errors.As(err, &code):
		return int(code)
	}
	switch e := err.(type) {
	case usage:
		fmt.Fprintf(stderr, "%s\n", e)
		return 2
	default:
		fmt.Fprintf(stderr, "ERR: xio %s: %s\n", cmd, err)
		return 1
	}
}

// exitCode is an error type returned from command functions to indicate the
// exit code that should be returned by the program.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit: %d", e)
}

// usage is an error type returned from command functions to indicate a usage
// error.
//
// Usage errors cause the program to exit with status code 2.
type usage string

func usageError(msg string, args ...any) error {
	return usage(fmt.Sprintf(msg, args...))
}

func (e usage) Error() string {
	return string(e)
}

func setEnum[T ~string](enum *T, typ string, value string, options ...string) error {
	for _, option := range options {
		if option == value {
			*enum = T(option)
			return nil
		}
	}
	return fmt.Errorf("unsupported %s: %q (not one of %s)", typ, value, strings.Join(options, ", "))
}

type outputFormat string

func (o outputFormat) String() string {
	return string(o)
}

func (o *outputFormat) Set(value string) error {
	return setEnum(o, "output format", value, "text", "json", "yaml")
}

// newFlagSet constructs a flag set for cmd. Every command accepts -c/--config
// and -h/--help, the latter printing the usage message.
func newFlagSet(cmd, usage string) *flag.FlagSet {
	usage = strings.TrimSpace(usage)
	flagSet := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() { fmt.Fprintln(stdout, usage) }
	customVar(flagSet, &config.ConfigPath, "c", "config")
	return flagSet
}

// parseFlags is a greedy parser which consumes all options known to f and
// returns the remaining arguments.
//
// The help option prints the usage message of the flag set and is reported as
// a zero exit code, other parsing errors are usage errors.
func parseFlags(f *flag.FlagSet, args []string) ([]string, error) {
	var unknownArgs []string
	for {
		if err := f.Parse(args); err != nil {
			return nil, flagError(f, err)
		}
		if args = f.Args(); len(args) == 0 {
			return unknownArgs, nil
		}
		i := slices.IndexFunc(args, func(s string) bool {
			return strings.HasPrefix(s, "-")
		})
		if i < 0 {
			i = len(args)
		} else if args[i] == "-" {
			i++
		}
		if i == 0 {
			return nil, usageError("%s: parsing command line arguments did not error on %s", f.Name(), args[0])
		}
		unknownArgs = append(unknownArgs, args[:i]...)
		args = args[i:]
	}
}

func flagError(f *flag.FlagSet, err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return exitCode(0)
	}
	return usageError("%s: %s", f.Name(), err)
}

func boolVar(f *flag.FlagSet, dst *bool, name string, alias ...string) {
	f.BoolVar(dst, name, *dst, "")
	for _, name := range alias {
		f.BoolVar(dst, name, *dst, "")
	}
}

func customVar(f *flag.FlagSet, dst flag.Value, name string, alias ...string) {
	f.Var(dst, name, "")
	for _, name := range alias {
		f.Var(dst, name, "")
	}
}

package main

import (
	"context"
	"strconv"
	"syscall"

	"github.com/hiproz/Xapiand/internal/config"
	"github.com/hiproz/Xapiand/internal/print/textprint"
	"github.com/hiproz/Xapiand/pkg/xio"
)

const errnoUsage = `
Usage:	xio errno [options] [NAME|NUMBER...]

   Shows whether the given error numbers are ignored by the error classifier
   in the selected context. All the error numbers known to the system are
   listed when none are given.

Example:

   $ xio errno --udp ECONNRESET EPIPE
   ERRNO       NUMBER  IGNORED  DESCRIPTION
   ECONNRESET  104     yes      connection reset by peer
   EPIPE       32      no       broken pipe

Options:
       --again              Errors from non-blocking calls may be retried
   -c, --config path        Path to the xio configuration file (overrides XIOCONFIG)
   -h, --help               Show usage information
       --ignore-intr bool   Override io.ignore_intr from the configuration
   -o, --output format      Output format, one of: text, json, yaml
       --tcp                Errors come from a TCP socket
       --udp                Errors come from a UDP socket
`

type errnoInfo struct {
	Name        string `json:"name"        yaml:"name"        text:"ERRNO"`
	Number      int    `json:"number"      yaml:"number"      text:"NUMBER"`
	Ignored     bool   `json:"ignored"     yaml:"ignored"     text:"IGNORED"`
	Description string `json:"description" yaml:"description" text:"DESCRIPTION"`
}

// optionalBool is a boolean flag which records whether it was set.
type optionalBool struct {
	value bool
	set   bool
}

func (b *optionalBool) String() string { return strconv.FormatBool(b.value) }

func (b *optionalBool) IsBoolFlag() bool { return true }

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.value, b.set = v, true
	return nil
}

func errno(ctx context.Context, args []string) error {
	var (
		again      bool
		tcp        bool
		udp        bool
		ignoreIntr optionalBool
		output     = outputFormat("text")
	)

	flagSet := newFlagSet("xio errno", errnoUsage)
	boolVar(flagSet, &again, "again")
	boolVar(flagSet, &tcp, "tcp")
	boolVar(flagSet, &udp, "udp")
	customVar(flagSet, &ignoreIntr, "ignore-intr")
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	c, err := config.LoadConfig()
	if err != nil {
		return err
	}
	policy := xio.NewPolicy(c.IO.IgnoreIntr)
	if ignoreIntr.set {
		policy.SetIgnoreIntr(ignoreIntr.value)
	}

	var errnos []syscall.Errno
	if len(args) == 0 {
		errnos = knownErrnos()
	} else {
		for _, arg := range args {
			e, err := xio.ParseErrno(arg)
			if err != nil {
				return usageError("xio errno: %s", err)
			}
			errnos = append(errnos, e)
		}
	}

	infos := make([]errnoInfo, len(errnos))
	for i, e := range errnos {
		infos[i] = errnoInfo{
			Name:        xio.ErrnoName(e),
			Number:      int(e),
			Ignored:     policy.Ignored(e, again, tcp, udp),
			Description: e.Error(),
		}
	}

	switch output {
	case "json":
		return writeJSON(stdout, infos)
	case "yaml":
		return writeYAML(stdout, infos)
	default:
		w := textprint.NewTableWriter[errnoInfo](stdout)
		w.Write(infos...)
		return w.Close()
	}
}

func knownErrnos() []syscall.Errno {
	var errnos []syscall.Errno
	for n := 1; n < 256; n++ {
		e := syscall.Errno(n)
		if name := xio.ErrnoName(e); name != "E"+strconv.Itoa(n) {
			errnos = append(errnos, e)
		}
	}
	return errnos
}

package config

import (
	"encoding"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Path represents a path on the file system.
//
// The type interprets the special prefix "~/" as representing the home
// directory of the user that the program is running as. The prefix is
// expanded when the path is resolved, not when it is set, so the original
// form is preserved when the configuration is printed.
type Path string

func (p Path) String() string { return string(p) }

func (p *Path) Set(s string) error {
	*p = Path(s)
	return nil
}

// Resolve returns the path with the home directory prefix expanded.
func (p Path) Resolve() (string, error) {
	s := string(p)
	if len(s) < 2 || s[0] != '~' || s[1] != os.PathSeparator {
		return s, nil
	}
	home, ok := os.LookupEnv("HOME")
	if !ok {
		u, err := user.Current()
		if err != nil {
			return "", err
		}
		home = u.HomeDir
	}
	return filepath.Join(home, s[2:]), nil
}

// Duration is a time.Duration encoded in its string form ("1s", "250ms") in
// configuration files.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("malformed duration: %q: %w", s, err)
	}
	if v < 0 {
		return fmt.Errorf("negative duration: %q", s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error { return d.Set(node.Value) }

// Violation is the policy applied when a descriptor check fails.
type Violation string

const (
	// ViolationLog logs the failed check and lets the program continue.
	ViolationLog Violation = "log"
	// ViolationAbort logs the failed check then panics.
	ViolationAbort Violation = "abort"
)

func (v Violation) String() string { return string(v) }

func (v *Violation) Set(s string) error {
	switch Violation(strings.ToLower(s)) {
	case ViolationLog:
		*v = ViolationLog
	case ViolationAbort:
		*v = ViolationAbort
	default:
		return fmt.Errorf("invalid violation policy: %q (must be log or abort)", s)
	}
	return nil
}

func (v *Violation) UnmarshalText(b []byte) error { return v.Set(string(b)) }

// Level is a logrus level in configuration files.
type Level logrus.Level

func (l Level) String() string { return logrus.Level(l).String() }

func (l *Level) Set(s string) error {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return err
	}
	*l = Level(level)
	return nil
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Level) UnmarshalText(b []byte) error { return l.Set(string(b)) }

// Format is the format of log entries, text or json.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func (f Format) String() string { return string(f) }

func (f *Format) Set(s string) error {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		*f = FormatText
	case FormatJSON:
		*f = FormatJSON
	default:
		return fmt.Errorf("invalid log format: %q (must be text or json)", s)
	}
	return nil
}

func (f *Format) UnmarshalText(b []byte) error { return f.Set(string(b)) }

var (
	_ flag.Value = (*Path)(nil)
	_ flag.Value = (*Duration)(nil)
	_ flag.Value = (*Violation)(nil)
	_ flag.Value = (*Level)(nil)
	_ flag.Value = (*Format)(nil)

	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ encoding.TextUnmarshaler = (*Violation)(nil)
	_ encoding.TextUnmarshaler = (*Level)(nil)
	_ encoding.TextUnmarshaler = (*Format)(nil)

	_ yaml.Marshaler   = Duration(0)
	_ yaml.Unmarshaler = (*Duration)(nil)
)

// Package config loads the configuration of the xio tool and builds the
// logger, descriptor checker and I/O wrappers it describes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/hiproz/Xapiand/pkg/fdcheck"
	"github.com/hiproz/Xapiand/pkg/xio"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "~/.xio/config.yaml"

// ConfigPath is the path to the configuration file.
var ConfigPath Path = defaultConfigPath

// LoadConfig opens and reads the configuration file.
func LoadConfig() (*Config, error) {
	r, path, err := OpenConfig()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	c, err := ReadConfig(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// OpenConfig opens the configuration file. When the file does not exist, the
// returned reader yields the default configuration.
func OpenConfig() (io.ReadCloser, string, error) {
	path, err := ConfigPath.Resolve()
	if err != nil {
		return nil, path, err
	}
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
		b, _ := yaml.Marshal(DefaultConfig())
		return io.NopCloser(bytes.NewReader(b)), path, nil
	}
	return f, path, nil
}

// ReadConfig reads and parses configuration. Unknown fields are errors.
func ReadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultConfig is the default configuration.
func DefaultConfig() *Config {
	c := new(Config)
	c.Check.Enabled = Null[bool]()
	c.Check.Violation = ViolationLog
	c.Check.Shards = fdcheck.DefaultShards
	c.IO.IgnoreIntr = xio.DefaultIgnoreIntr
	c.IO.MinimumFD = xio.MinimumFileDescriptor
	c.Log.Level = Level(logrus.InfoLevel)
	c.Log.Format = FormatText
	return c
}

// Config is the xio configuration.
type Config struct {
	Check struct {
		// Enabled forces descriptor checks on or off. When null, checks are
		// enabled only in binaries built with the fdcheck tag.
		Enabled   Nullable[bool] `json:"enabled"   yaml:"enabled"`
		Violation Violation      `json:"violation" yaml:"violation"`
		Shards    int            `json:"shards"    yaml:"shards"`
		LogEvery  Duration       `json:"log_every" yaml:"log_every"`
	} `json:"check" yaml:"check"`
	IO struct {
		IgnoreIntr bool `json:"ignore_intr" yaml:"ignore_intr"`
		MinimumFD  int  `json:"minimum_fd"  yaml:"minimum_fd"`
	} `json:"io" yaml:"io"`
	Log struct {
		Level  Level  `json:"level"  yaml:"level"`
		Format Format `json:"format" yaml:"format"`
	} `json:"log" yaml:"log"`
}

// Validate checks the consistency of the configuration values.
func (c *Config) Validate() error {
	if c.Check.Shards < 1 {
		return fmt.Errorf("check.shards must be positive: %d", c.Check.Shards)
	}
	if c.IO.MinimumFD < 0 {
		return fmt.Errorf("io.minimum_fd must not be negative: %d", c.IO.MinimumFD)
	}
	return nil
}

// CheckEnabled reports whether descriptor checks are enabled, resolving a null
// check.enabled to the build default.
func (c *Config) CheckEnabled() bool {
	if enabled, ok := c.Check.Enabled.Value(); ok {
		return enabled
	}
	return fdcheck.Enabled
}

// NewLogger constructs a logger writing to stderr with the configured level
// and format.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.Level(c.Log.Level))
	switch c.Log.Format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger
}

// NewChecker constructs the descriptor checker described by the
// configuration, reporting violations to logger. The Nop checker is returned
// when checks are disabled.
func (c *Config) NewChecker(logger logrus.FieldLogger) fdcheck.Checker {
	if !c.CheckEnabled() {
		return fdcheck.Nop
	}
	return c.NewValidator(logger)
}

// NewValidator is like NewChecker but always constructs a validator.
func (c *Config) NewValidator(logger logrus.FieldLogger) *fdcheck.Validator {
	reporter := fdcheck.LogReporter(logger, time.Duration(c.Check.LogEvery))
	if c.Check.Violation == ViolationAbort {
		reporter = fdcheck.AbortReporter(reporter)
	}
	return fdcheck.New(
		fdcheck.WithShards(c.Check.Shards),
		fdcheck.WithReporter(reporter),
	)
}

// NewIO constructs the I/O wrappers checking descriptors with checker.
func (c *Config) NewIO(checker fdcheck.Checker) *xio.IO {
	return xio.New(
		xio.WithChecker(checker),
		xio.WithPolicy(xio.NewPolicy(c.IO.IgnoreIntr)),
		xio.WithMinimumFD(c.IO.MinimumFD),
	)
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hiproz/Xapiand/internal/assert"
	"github.com/hiproz/Xapiand/internal/config"
	"github.com/hiproz/Xapiand/pkg/fdcheck"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/yaml.v3"
)

func TestReadConfig(t *testing.T) {
	c, err := config.ReadConfig(strings.NewReader(`
check:
  enabled: true
  violation: abort
  shards: 8
  log_every: 250ms
io:
  ignore_intr: false
  minimum_fd: 10
log:
  level: debug
  format: json
`))
	assert.OK(t, err)

	enabled, ok := c.Check.Enabled.Value()
	assert.True(t, ok)
	assert.True(t, enabled)
	assert.True(t, c.CheckEnabled())
	assert.Equal(t, c.Check.Violation, config.ViolationAbort)
	assert.Equal(t, c.Check.Shards, 8)
	assert.Equal(t, time.Duration(c.Check.LogEvery), 250*time.Millisecond)
	assert.False(t, c.IO.IgnoreIntr)
	assert.Equal(t, c.IO.MinimumFD, 10)
	assert.Equal(t, logrus.Level(c.Log.Level), logrus.DebugLevel)
	assert.Equal(t, c.Log.Format, config.FormatJSON)
}

func TestReadConfigDefaults(t *testing.T) {
	for name, input := range map[string]string{
		"empty":   "",
		"partial": "log:\n  level: info\n",
		"null":    "check:\n  enabled: null\n",
	} {
		t.Run(name, func(t *testing.T) {
			c, err := config.ReadConfig(strings.NewReader(input))
			assert.OK(t, err)
			assert.DeepEqual(t, c, config.DefaultConfig(), cmpConfig)
			_, ok := c.Check.Enabled.Value()
			assert.False(t, ok)
			assert.Equal(t, c.CheckEnabled(), fdcheck.Enabled)
		})
	}
}

func TestReadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":     "check:\n  enable: true\n",
		"invalid violation": "check:\n  violation: ignore\n",
		"invalid shards":    "check:\n  shards: 0\n",
		"invalid duration":  "check:\n  log_every: soon\n",
		"invalid level":     "log:\n  level: loud\n",
		"invalid format":    "log:\n  format: xml\n",
		"negative fd":       "io:\n  minimum_fd: -1\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.ReadConfig(strings.NewReader(input))
			assert.NotEqual(t, err, nil)
		})
	}
}

func TestDefaultConfigRoundTrip(t *testing.T) {
	b, err := yaml.Marshal(config.DefaultConfig())
	assert.OK(t, err)
	assert.Contains(t, string(b), "enabled: null")
	assert.Contains(t, string(b), "log_every: 0s")

	c, err := config.ReadConfig(strings.NewReader(string(b)))
	assert.OK(t, err)
	assert.DeepEqual(t, c, config.DefaultConfig(), cmpConfig)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	defer func(p config.Path) { config.ConfigPath = p }(config.ConfigPath)
	config.ConfigPath = config.Path(path)

	c, err := config.LoadConfig()
	assert.OK(t, err)
	assert.DeepEqual(t, c, config.DefaultConfig(), cmpConfig)

	assert.OK(t, os.WriteFile(path, []byte("io:\n  minimum_fd: 42\n"), 0600))
	c, err = config.LoadConfig()
	assert.OK(t, err)
	assert.Equal(t, c.IO.MinimumFD, 42)

	assert.OK(t, os.WriteFile(path, []byte("io: [\n"), 0600))
	_, err = config.LoadConfig()
	assert.NotEqual(t, err, nil)
	assert.Contains(t, err.Error(), path)
}

func TestPathResolve(t *testing.T) {
	t.Setenv("HOME", "/home/xio")

	tests := map[config.Path]string{
		"~/.xio/config.yaml": "/home/xio/.xio/config.yaml",
		"/etc/xio.yaml":      "/etc/xio.yaml",
		"relative/path":      "relative/path",
		"~user/file":         "~user/file",
	}

	for path, want := range tests {
		t.Run(string(path), func(t *testing.T) {
			got, err := path.Resolve()
			assert.OK(t, err)
			assert.Equal(t, got, want)
		})
	}
}

func TestNewChecker(t *testing.T) {
	logger, hook := test.NewNullLogger()

	c := config.DefaultConfig()
	c.Check.Enabled = config.NullableValue(false)
	assert.Equal(t, c.NewChecker(logger), fdcheck.Nop)

	c.Check.Enabled = config.NullableValue(true)
	checker := c.NewChecker(logger)
	_, ok := checker.(*fdcheck.Validator)
	assert.True(t, ok)

	// every violation is logged unless check.log_every is set
	assert.False(t, fdcheck.CheckClosing(checker, 3))
	assert.False(t, fdcheck.CheckClosing(checker, 4))
	assert.False(t, fdcheck.CheckOpenedSocket(checker, "during send()", 5))
	assert.Equal(t, len(hook.AllEntries()), 3)

	c.Check.Violation = config.ViolationAbort
	checker = c.NewChecker(logger)
	assert.Panics(t, func() { fdcheck.CheckClosing(checker, 3) })
	assert.Equal(t, len(hook.AllEntries()), 4)
}

func TestNewIO(t *testing.T) {
	c := config.DefaultConfig()
	c.IO.IgnoreIntr = false

	x := c.NewIO(fdcheck.Nop)
	assert.Equal(t, x.Checker(), fdcheck.Nop)
	assert.False(t, x.Policy().IgnoreIntr())
}

func TestNewLogger(t *testing.T) {
	c := config.DefaultConfig()
	c.Log.Level = config.Level(logrus.WarnLevel)
	c.Log.Format = config.FormatJSON

	logger := c.NewLogger()
	assert.Equal(t, logger.GetLevel(), logrus.WarnLevel)
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

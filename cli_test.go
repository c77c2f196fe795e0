package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hiproz/Xapiand/internal/assert"
	"gopkg.in/yaml.v3"
)

var rootTests = tests{
	"invoking xio without a command shows the introduction message": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t)
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "xio - checked, interrupt-safe POSIX descriptor I/O\n")
		assert.Equal(t, stderr, "")
	},

	"the help option shows the list of commands": func(t *testing.T) {
		stdout, _, exitCode := invoke(t, "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\txio <command> [options]\n")
	},

	"an unknown global option is a usage error": func(t *testing.T) {
		_, stderr, exitCode := invoke(t, "-_", "version")
		assert.Equal(t, exitCode, 2)
		assert.Contains(t, stderr, "flag provided but not defined: -_")
	},
}

var helpTests = tests{
	"the help command shows the list of commands": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "\nUsage:\txio <command> [options]\n")
		assert.Equal(t, stderr, "")
	},

	"the help command shows the usage of other commands": func(t *testing.T) {
		for _, cmd := range []string{"config", "errno", "probe", "version"} {
			stdout, _, exitCode := invoke(t, "help", cmd)
			assert.Equal(t, exitCode, 0)
			assert.HasPrefix(t, stdout, "\nUsage:\txio "+cmd)
		}
	},

	"the help command fails on unknown commands": func(t *testing.T) {
		stdout, _, exitCode := invoke(t, "help", "whatever")
		assert.Equal(t, exitCode, 1)
		assert.Equal(t, stdout, "xio help whatever: unknown command\n")
	},
}

var unknownTests = tests{
	"an error is reported when invoking an unknown command": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.HasPrefix(t, stderr, "xio whatever: unknown command\n")
	},
}

var versionTests = tests{
	"show the version command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "version", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\txio version\n")
		assert.Equal(t, stderr, "")
	},

	"show the version command help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "version", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\txio version\n")
		assert.Equal(t, stderr, "")
	},

	"the version starts with the prefix xio": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "xio ")
		assert.Equal(t, stderr, "")

		_, version, _ := strings.Cut(strings.TrimSpace(stdout), " ")
		assert.NotEqual(t, version, "")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := invoke(t, "version", "-_")
		assert.Equal(t, exitCode, 2)
	},
}

var configTests = tests{
	"the text output is the content of the configuration file": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "config")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, testConfig)
		assert.Equal(t, stderr, "")
	},

	"the json output includes the default values": func(t *testing.T) {
		stdout, _, exitCode := invoke(t, "config", "-o", "json")
		assert.Equal(t, exitCode, 0)

		var c map[string]map[string]any
		assert.OK(t, json.Unmarshal([]byte(stdout), &c))
		assert.Equal(t, c["check"]["enabled"], any(false))
		assert.Equal(t, c["check"]["violation"], any("log"))
		assert.Equal(t, c["check"]["shards"], any(float64(64)))
		assert.Equal(t, c["io"]["minimum_fd"], any(float64(3)))
		assert.Equal(t, c["log"]["level"], any("warning"))
	},

	"the yaml output can be read back": func(t *testing.T) {
		stdout, _, exitCode := invoke(t, "config", "--output", "yaml")
		assert.Equal(t, exitCode, 0)
		assert.Contains(t, stdout, "ignore_intr: true\n")

		var c map[string]map[string]any
		assert.OK(t, yaml.Unmarshal([]byte(stdout), &c))
		assert.Equal(t, c["check"]["log_every"], any("0s"))
	},

	"the default configuration is shown when the file does not exist": func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		stdout, _, exitCode := invoke(t, "config", "-c", path)
		assert.Equal(t, exitCode, 0)
		assert.Contains(t, stdout, "enabled: null\n")
		assert.Contains(t, stdout, "log_every: 0s\n")
	},

	"an invalid configuration file is reported": func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		assert.OK(t, os.WriteFile(path, []byte("check:\n  shards: 0\n"), 0666))
		_, stderr, exitCode := invoke(t, "config", "--config", path)
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: xio config: ")
		assert.Contains(t, stderr, "check.shards must be positive")
	},

	"an unsupported output format is a usage error": func(t *testing.T) {
		_, _, exitCode := invoke(t, "config", "-o", "xml")
		assert.Equal(t, exitCode, 2)
	},
}

var errnoTests = tests{
	"errors are classified in the selected context": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "errno", "--udp", "ECONNRESET", "epipe")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		assert.Equal(t, len(lines), 3)
		assert.HasPrefix(t, lines[0], "ERRNO")
		assert.Equal(t, strings.Fields(lines[1])[0], "ECONNRESET")
		assert.Equal(t, strings.Fields(lines[1])[2], "yes")
		assert.Equal(t, strings.Fields(lines[2])[0], "EPIPE")
		assert.Equal(t, strings.Fields(lines[2])[2], "no")
	},

	"the interrupt posture can be overridden": func(t *testing.T) {
		var infos []errnoInfo

		stdout, _, exitCode := invoke(t, "errno", "-o", "json", "EINTR")
		assert.Equal(t, exitCode, 0)
		assert.OK(t, json.Unmarshal([]byte(stdout), &infos))
		assert.Equal(t, len(infos), 1)
		assert.True(t, infos[0].Ignored)

		stdout, _, exitCode = invoke(t, "errno", "--ignore-intr=false", "-o", "json", "4")
		assert.Equal(t, exitCode, 0)
		assert.OK(t, json.Unmarshal([]byte(stdout), &infos))
		assert.Equal(t, infos[0].Name, "EINTR")
		assert.False(t, infos[0].Ignored)
	},

	"all known errors are listed when none are given": func(t *testing.T) {
		var infos []errnoInfo
		stdout, _, exitCode := invoke(t, "errno", "--again", "-o", "yaml")
		assert.Equal(t, exitCode, 0)
		assert.OK(t, yaml.Unmarshal([]byte(stdout), &infos))
		assert.Less(t, 30, len(infos))

		for _, info := range infos {
			if info.Name == "EAGAIN" {
				assert.True(t, info.Ignored)
				return
			}
		}
		t.Fatal("EAGAIN not listed")
	},

	"an unknown error name is a usage error": func(t *testing.T) {
		_, stderr, exitCode := invoke(t, "errno", "ENOTHING")
		assert.Equal(t, exitCode, 2)
		assert.Contains(t, stderr, `unknown errno: "ENOTHING"`)
	},
}

var probeTests = tests{
	"all the calls succeed": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "probe", "--check", "--dir", t.TempDir())
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		assert.HasPrefix(t, lines[0], "CALL")
		for _, line := range lines[1:] {
			fields := strings.Fields(line)
			assert.Equal(t, fields[len(fields)-1], "OK")
		}
		assert.Contains(t, stdout, "\nfallocate ")
		assert.Contains(t, stdout, "\nexchange ")
	},

	"a use after close is reported": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "probe", "--check", "--violation", "--dir", t.TempDir())
		assert.Equal(t, exitCode, 0)
		assert.Contains(t, stdout, "\nwrite after close  OK\n")
		assert.Contains(t, stderr, "descriptor check failed during write()")
	},

	"a use after close aborts with the abort option": func(t *testing.T) {
		stdout, stderr, exitCode := invoke(t, "probe", "--check", "--abort", "--violation", "--dir", t.TempDir())
		assert.Equal(t, exitCode, 1)
		assert.Contains(t, stdout, "during write()")
		assert.Contains(t, stdout, "aborted")
		assert.Contains(t, stderr, "ERR: xio probe: aborted: fd ")
	},

	"the validator metrics are printed": func(t *testing.T) {
		stdout, _, exitCode := invoke(t, "probe", "--check", "--violation", "--metrics", "--dir", t.TempDir())
		assert.Equal(t, exitCode, 0)
		assert.Contains(t, stdout, "# TYPE fdcheck_checks_total counter\n")
		assert.Contains(t, stdout, `fdcheck_violations_total{check="during write()"} 1`)
		assert.Contains(t, stdout, "fdcheck_tracked_descriptors ")
	},

	"the probe runs without descriptor checks": func(t *testing.T) {
		stdout, _, exitCode := invoke(t, "probe", "--violation", "--dir", t.TempDir())
		assert.Equal(t, exitCode, 0)
		assert.Contains(t, stdout, "\nwrite after close  OK\n")
	},
}

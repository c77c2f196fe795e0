package fdcheck_test

import (
	"io"
	"testing"
	"time"

	"github.com/hiproz/Xapiand/internal/assert"
	"github.com/hiproz/Xapiand/pkg/fdcheck"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLogReporter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	v := fdcheck.New(fdcheck.WithReporter(fdcheck.LogReporter(logger, 0)))

	fdcheck.CheckOpen(v, 3)
	fdcheck.CheckOpenedSocket(v, "during send()", 3)

	entry := hook.LastEntry()
	assert.Equal(t, len(hook.AllEntries()), 1)
	assert.Equal(t, entry.Level, logrus.ErrorLevel)
	assert.Equal(t, entry.Message, "descriptor check failed during send()")
	assert.Equal(t, entry.Data["fd"], any(3))
	assert.Equal(t, entry.Data["state"], any("OPENED"))
	assert.Equal(t, entry.Data["required"], any("OPENED|SOCKET"))
	assert.Equal(t, entry.Data["forbidden"], any("CLOSED"))
	assert.Contains(t, entry.Data["function"].(string), "TestLogReporter")
}

func TestLogReporterRateLimit(t *testing.T) {
	logger, hook := test.NewNullLogger()
	v := fdcheck.New(fdcheck.WithReporter(fdcheck.LogReporter(logger, time.Hour)))

	for i := 0; i < 4; i++ {
		fdcheck.CheckClosing(v, 3)
	}
	assert.Equal(t, len(hook.AllEntries()), 1)
	_, dropped := hook.LastEntry().Data["dropped"]
	assert.False(t, dropped)
}

func TestLogReporterDroppedCount(t *testing.T) {
	now := time.Unix(1e9, 0)
	clock := func() time.Time { return now }

	logger, hook := test.NewNullLogger()
	v := fdcheck.New(fdcheck.WithReporter(fdcheck.LogReporterClock(logger, time.Second, clock)))

	fdcheck.CheckOpen(v, 3)
	fdcheck.CheckOpen(v, 3)
	fdcheck.CheckOpenedSocket(v, "during send()", 3)
	fdcheck.CheckClosing(v, 4)
	assert.Equal(t, len(hook.AllEntries()), 1)
	assert.Equal(t, hook.LastEntry().Message, "descriptor check failed while opening as file")

	now = now.Add(time.Second)
	fdcheck.CheckClosing(v, 5)
	assert.Equal(t, len(hook.AllEntries()), 2)
	assert.Equal(t, hook.LastEntry().Data["fd"], any(5))
	assert.Equal(t, hook.LastEntry().Data["dropped"], any(int64(2)))

	now = now.Add(time.Second)
	fdcheck.CheckClosing(v, 6)
	_, dropped := hook.LastEntry().Data["dropped"]
	assert.False(t, dropped)
}

func TestDefaultReporterLogsEveryViolation(t *testing.T) {
	std := logrus.StandardLogger()
	hook := new(test.Hook)
	defer std.ReplaceHooks(std.ReplaceHooks(logrus.LevelHooks{}))
	std.AddHook(hook)
	out := std.Out
	std.SetOutput(io.Discard)
	defer std.SetOutput(out)

	v := fdcheck.New()
	fdcheck.CheckOpen(v, 3)
	fdcheck.CheckOpen(v, 3)
	fdcheck.CheckOpenedSocket(v, "during send()", 3)
	fdcheck.CheckClosing(v, 4)

	entries := hook.AllEntries()
	assert.Equal(t, len(entries), 3)
	assert.Equal(t, entries[0].Message, "descriptor check failed while opening as file")
	assert.Equal(t, entries[1].Message, "descriptor check failed during send()")
	assert.Equal(t, entries[2].Message, "descriptor check failed while closing")
	assert.Equal(t, entries[2].Data["fd"], any(4))
}

func TestAbortReporter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	v := fdcheck.New(fdcheck.WithReporter(fdcheck.AbortReporter(fdcheck.LogReporter(logger, 0))))

	fdcheck.CheckOpen(v, 5)
	fdcheck.CheckClosing(v, 5)
	fdcheck.CheckClose(v, 5)

	value := assert.Panics(t, func() { fdcheck.CheckOpened(v, "during write()", 5) })
	violation, ok := value.(*fdcheck.Violation)
	assert.True(t, ok)
	assert.Equal(t, violation.FD, 5)
	assert.Equal(t, len(hook.AllEntries()), 1)

	// the validator must still be usable after the panic was recovered
	assert.True(t, fdcheck.CheckOpen(v, 5))
}

func TestNilReporterDiscards(t *testing.T) {
	v := fdcheck.New(fdcheck.WithReporter(nil))
	assert.False(t, fdcheck.CheckClosing(v, 1))
}

func TestSiteString(t *testing.T) {
	site := fdcheck.Site{Function: "main.run", File: "/src/app/main.go", Line: 42}
	assert.Equal(t, site.String(), "main.run (main.go:42)")
	assert.Equal(t, fdcheck.Site{}.String(), "")
	assert.Equal(t, fdcheck.Site{File: "a/b.go", Line: 1}.String(), "b.go:1")
}

func TestCaller(t *testing.T) {
	site := fdcheck.Caller(0)
	assert.Contains(t, site.Function, "TestCaller")
	assert.Contains(t, site.File, "report_test.go")
}

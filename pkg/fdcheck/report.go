package fdcheck

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Violation describes a descriptor used outside of its tracked valid states.
type Violation struct {
	Site      Site
	Message   string
	FD        int
	State     Flags
	Required  Flags
	Forbidden Flags
	Apply     Flags
}

// Missing returns the required flags which were not set.
func (v *Violation) Missing() Flags { return v.Required &^ v.State }

// Unexpected returns the forbidden flags which were set.
func (v *Violation) Unexpected() Flags { return v.Forbidden & v.State }

func (v *Violation) Error() string {
	s := fmt.Sprintf("fd %d %s: state is %s", v.FD, v.Message, v.State)
	if m := v.Missing(); m != 0 {
		s += ", missing " + m.String()
	}
	if u := v.Unexpected(); u != 0 {
		s += ", unexpected " + u.String()
	}
	if site := v.Site.String(); site != "" {
		s += " at " + site
	}
	return s
}

// Reporter receives the violations detected by a Validator.
//
// Report is called without holding any lock of the validator, implementations
// may call back into it.
type Reporter interface {
	Report(v *Violation)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(*Violation)

func (f ReporterFunc) Report(v *Violation) { f(v) }

type logReporter struct {
	log     logrus.FieldLogger
	limit   *rate.Limiter
	now     func() time.Time
	dropped atomic.Int64
}

// LogReporter returns a Reporter logging violations at the error level, no
// more than once per the given duration. Violations dropped by the rate limit
// are counted and the count is attached to the next entry which gets logged,
// violations at the end of a burst are only accounted for by the
// fdcheck_violations_total metric. A zero duration disables the rate limit
// and logs every violation.
func LogReporter(log logrus.FieldLogger, every time.Duration) Reporter {
	limit := rate.NewLimiter(rate.Inf, 1)
	if every > 0 {
		limit = rate.NewLimiter(rate.Every(every), 1)
	}
	return &logReporter{log: log, limit: limit, now: time.Now}
}

func (r *logReporter) Report(v *Violation) {
	if !r.limit.AllowN(r.now(), 1) {
		r.dropped.Add(1)
		return
	}
	entry := r.log.WithFields(logrus.Fields{
		"fd":        v.FD,
		"state":     v.State.String(),
		"required":  v.Required.String(),
		"forbidden": v.Forbidden.String(),
		"function":  v.Site.Function,
		"file":      v.Site.File,
		"line":      v.Site.Line,
	})
	if n := r.dropped.Swap(0); n > 0 {
		entry = entry.WithField("dropped", n)
	}
	entry.Errorf("descriptor check failed %s", v.Message)
}

// AbortReporter returns a Reporter which forwards violations to r, then
// panics with the violation. A nil r only panics.
//
// Unless the panic is recovered by the caller of the wrapped system call, the
// program terminates on the first violation.
func AbortReporter(r Reporter) Reporter {
	return ReporterFunc(func(v *Violation) {
		if r != nil {
			r.Report(v)
		}
		panic(v)
	})
}

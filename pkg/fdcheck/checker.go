// Package fdcheck tracks the lifecycle of file and socket descriptors to catch
// use-after-close, double close, double open and confusion between files and
// sockets at the point where the mistake is made, before the kernel silently
// operates on a descriptor number that was reassigned to something else.
//
// The package exposes a single check-and-transition operation through the
// Checker interface. Call sites use the Check* helpers or the predefined
// Transition values, which carry the required, forbidden and applied flags of
// each transition and capture the caller's location for diagnostics.
//
// Tracking is a diagnostic feature. Programs built without the fdcheck build
// tag get the Nop checker from Default, which the helpers short-circuit
// without capturing any call-site information.
package fdcheck

import (
	"path/filepath"
	"runtime"
	"strconv"
)

// Checker is the interface implemented by descriptor validators.
type Checker interface {
	// Check verifies that all the required flags and none of the forbidden
	// flags are set for fd, then adds apply to its state. The method returns
	// false if the verification failed, in which case the state of fd is left
	// unchanged and the violation is reported out of band.
	Check(site Site, msg string, fd int, required, forbidden, apply Flags) bool
	// State returns the flags currently tracked for fd.
	State(fd int) Flags
}

// Site is the location of a call to one of the transition helpers.
type Site struct {
	Function string
	File     string
	Line     int
}

func (s Site) String() string {
	if s.File == "" {
		return s.Function
	}
	loc := filepath.Base(s.File) + ":" + strconv.Itoa(s.Line)
	if s.Function == "" {
		return loc
	}
	return s.Function + " (" + loc + ")"
}

// Caller returns the call site skip frames above the caller of Caller.
func Caller(skip int) Site {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Site{}
	}
	site := Site{File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		site.Function = fn.Name()
	}
	return site
}

type nop struct{}

func (nop) Check(Site, string, int, Flags, Flags, Flags) bool { return true }

func (nop) State(int) Flags { return 0 }

// Nop is a Checker which tracks nothing and never reports violations.
var Nop Checker = nop{}

// Transition is a checked change of a descriptor state: the Required flags
// must be set, the Forbidden flags must not be, and Apply is added on success.
type Transition struct {
	Required  Flags
	Forbidden Flags
	Apply     Flags
}

var (
	// OpenFile guards that a freshly returned descriptor was not tracked as
	// live already.
	OpenFile = Transition{Forbidden: Opened | Closed, Apply: Opened}
	// OpenSocket is OpenFile for sockets.
	OpenSocket = Transition{Forbidden: Opened | Socket | Closed, Apply: Opened | Socket}
	// UseFile guards every operation using a descriptor.
	UseFile = Transition{Required: Opened, Forbidden: Closed}
	// UseSocket guards operations which only apply to sockets.
	UseSocket = Transition{Required: Opened | Socket, Forbidden: Closed}
	// Closing guards that close is only attempted on open descriptors.
	Closing = Transition{Required: Opened}
	// Close marks a descriptor closed.
	Close = Transition{Forbidden: Closed, Apply: Closed}
)

// Run checks the transition for fd on c. Violations are attributed to the
// call site skip frames above the caller of Run.
//
// Run returns true without capturing the call site when c is nil or Nop.
func (tr Transition) Run(c Checker, skip int, msg string, fd int) bool {
	if c == nil || c == Nop {
		return true
	}
	return c.Check(Caller(skip+1), msg, fd, tr.Required, tr.Forbidden, tr.Apply)
}

// CheckOpen records fd as a freshly opened file. It fails if fd is already
// tracked as open.
func CheckOpen(c Checker, fd int) bool {
	return OpenFile.Run(c, 1, "while opening as file", fd)
}

// CheckOpenSocket records fd as a freshly opened socket.
func CheckOpenSocket(c Checker, fd int) bool {
	return OpenSocket.Run(c, 1, "while opening as socket", fd)
}

// CheckOpened guards operations which use fd as a file.
func CheckOpened(c Checker, msg string, fd int) bool {
	return UseFile.Run(c, 1, msg, fd)
}

// CheckOpenedSocket guards operations which only apply to sockets.
func CheckOpenedSocket(c Checker, msg string, fd int) bool {
	return UseSocket.Run(c, 1, msg, fd)
}

// CheckClosing must be called before closing fd.
func CheckClosing(c Checker, fd int) bool {
	return Closing.Run(c, 1, "while closing", fd)
}

// CheckClose marks fd closed. It must only be called after the close system
// call succeeded, so a failed close leaves the descriptor tracked as open.
func CheckClose(c Checker, fd int) bool {
	return Close.Run(c, 1, "while closing", fd)
}

//go:build linux || darwin

// Package xio wraps the POSIX file and socket system calls used by the
// program. The wrappers retry calls interrupted by signals, check the
// descriptors they operate on with a fdcheck.Checker, and return the native
// results and errno values of the system calls unchanged.
//
// Whether a failed call may be retried or ignored is decided by the caller
// with (*IO).Ignored, according to the transport the call was made on.
package xio

import (
	"reflect"

	"github.com/hiproz/Xapiand/pkg/fdcheck"
)

// MinimumFileDescriptor is the lowest descriptor number handed out by Open.
// Lower numbers are commonly used for standard input, output and error, and a
// program writing to stderr after it was closed would otherwise corrupt
// whatever file got opened in its place.
const MinimumFileDescriptor = 3

// IO exposes the checked system calls. An IO is safe to use concurrently.
type IO struct {
	check  fdcheck.Checker
	policy *Policy
	minfd  int
}

// Option configures an IO.
type Option func(*IO)

// WithChecker sets the descriptor checker. A nil checker, including a nil
// pointer of a type implementing fdcheck.Checker, disables checks.
func WithChecker(c fdcheck.Checker) Option {
	return func(x *IO) {
		if isNil(c) {
			c = fdcheck.Nop
		}
		x.check = c
	}
}

func isNil(c fdcheck.Checker) bool {
	if c == nil {
		return true
	}
	switch v := reflect.ValueOf(c); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// WithPolicy sets the error classification policy.
func WithPolicy(p *Policy) Option {
	return func(x *IO) {
		if p != nil {
			x.policy = p
		}
	}
}

// WithMinimumFD sets the lowest descriptor number returned by Open.
func WithMinimumFD(fd int) Option {
	return func(x *IO) {
		if fd >= 0 {
			x.minfd = fd
		}
	}
}

// New constructs an IO. By default it uses the checker selected at build time
// by fdcheck.Default and a policy ignoring EINTR.
func New(options ...Option) *IO {
	x := &IO{minfd: MinimumFileDescriptor}
	for _, opt := range options {
		opt(x)
	}
	if x.check == nil {
		x.check = fdcheck.Default()
	}
	if x.policy == nil {
		x.policy = NewPolicy(DefaultIgnoreIntr)
	}
	return x
}

// Checker returns the descriptor checker used by x.
func (x *IO) Checker() fdcheck.Checker { return x.check }

// Policy returns the error classification policy used by x.
func (x *IO) Policy() *Policy { return x.policy }

// Ignored classifies err with the policy of x, see Policy.Ignored.
func (x *IO) Ignored(err error, again, tcp, udp bool) bool {
	return x.policy.Ignored(err, again, tcp, udp)
}

func (x *IO) opened(msg string, fd int) {
	fdcheck.UseFile.Run(x.check, 2, msg, fd)
}

func (x *IO) openedSocket(msg string, fd int) {
	fdcheck.UseSocket.Run(x.check, 2, msg, fd)
}

//go:build linux || darwin

package xio

import (
	"errors"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// DefaultIgnoreIntr is the interruption policy of policies created by New when
// no WithPolicy option is given: EINTR is ignorable.
const DefaultIgnoreIntr = true

// Policy decides which errors returned by system calls may be ignored.
//
// Whether EINTR is ignorable is a process-wide posture rather than a property
// of a call, so it is held by the policy and read on each classification. It
// is expected to change rarely, typically while the program is configured.
type Policy struct {
	ignoreIntr atomic.Bool
}

// NewPolicy constructs a Policy with the given interruption posture.
func NewPolicy(ignoreIntr bool) *Policy {
	p := new(Policy)
	p.ignoreIntr.Store(ignoreIntr)
	return p
}

// IgnoreIntr reports whether EINTR is ignorable.
func (p *Policy) IgnoreIntr() bool { return p.ignoreIntr.Load() }

// SetIgnoreIntr changes whether EINTR is ignorable.
func (p *Policy) SetIgnoreIntr(ignore bool) { p.ignoreIntr.Store(ignore) }

// Ignored reports whether err is a transient condition that the caller may
// retry or disregard rather than surface as a failure.
//
// again tells whether EAGAIN is expected (non-blocking I/O), tcp and udp give
// the transport of the socket the call was made on. Errors which do not wrap a
// syscall.Errno are never ignorable.
func (p *Policy) Ignored(err error, again, tcp, udp bool) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.EINTR:
		return p.IgnoreIntr()
	case unix.EAGAIN: // same value as EWOULDBLOCK
		return again
	case unix.EPIPE, unix.EINPROGRESS:
		return tcp
	case unix.ENETDOWN,
		unix.EPROTO,
		unix.ENOPROTOOPT,
		unix.EHOSTDOWN,
		unix.EHOSTUNREACH,
		unix.EOPNOTSUPP,
		unix.ENETUNREACH,
		unix.ECONNRESET:
		return udp
	default:
		if isNoRoute(errno) {
			return udp
		}
		return false
	}
}

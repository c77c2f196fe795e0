//go:build linux || darwin

package xio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

const maxErrno = 256

// ErrnoName returns the symbolic name of the errno wrapped in err, such as
// "EINTR". Errors which do not wrap a syscall.Errno are formatted with their
// Error method, a nil error is "OK".
func ErrnoName(err error) string {
	if err == nil {
		return "OK"
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return err.Error()
	}
	if name := unix.ErrnoName(errno); name != "" {
		return name
	}
	return "E" + strconv.Itoa(int(errno))
}

// ParseErrno parses an errno given by name ("EAGAIN", case insensitive) or by
// number.
func ParseErrno(s string) (syscall.Errno, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || n >= maxErrno {
			return 0, fmt.Errorf("errno out of range: %d", n)
		}
		return syscall.Errno(n), nil
	}
	name := strings.ToUpper(s)
	switch name {
	case "":
		return 0, errors.New("empty errno name")
	case "EWOULDBLOCK":
		return unix.EWOULDBLOCK, nil
	case "ENOTSUP":
		return unix.ENOTSUP, nil
	}
	for n := 1; n < maxErrno; n++ {
		if unix.ErrnoName(syscall.Errno(n)) == name {
			return syscall.Errno(n), nil
		}
	}
	return 0, fmt.Errorf("unknown errno: %q", s)
}

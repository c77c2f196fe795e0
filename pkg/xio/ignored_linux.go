package xio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func isNoRoute(errno syscall.Errno) bool {
	return errno == unix.ENONET
}

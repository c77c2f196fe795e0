package xio

import "syscall"

func isNoRoute(errno syscall.Errno) bool {
	return false
}

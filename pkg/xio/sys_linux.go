package xio

import "golang.org/x/sys/unix"

const (
	FADV_NORMAL     = unix.FADV_NORMAL
	FADV_RANDOM     = unix.FADV_RANDOM
	FADV_SEQUENTIAL = unix.FADV_SEQUENTIAL
	FADV_WILLNEED   = unix.FADV_WILLNEED
	FADV_DONTNEED   = unix.FADV_DONTNEED
	FADV_NOREUSE    = unix.FADV_NOREUSE
)

func socket(family, socktype, protocol int) (int, error) {
	return IgnoreEINTR2(func() (int, error) {
		return unix.Socket(family, socktype|unix.SOCK_CLOEXEC, protocol)
	})
}

func accept(fd int) (int, unix.Sockaddr, error) {
	return IgnoreEINTR3(func() (int, unix.Sockaddr, error) {
		return unix.Accept4(fd, unix.SOCK_CLOEXEC)
	})
}

// Linux only needs the data and the metadata required to read it back to be
// flushed, fdatasync is enough for both the regular and the full sync.
func fsync(fd int) error {
	return IgnoreEINTR(func() error { return unix.Fdatasync(fd) })
}

func fullFsync(fd int) error {
	return fsync(fd)
}

func fallocate(fd int, mode uint32, offset, length int64) error {
	return IgnoreEINTR(func() error { return unix.Fallocate(fd, mode, offset, length) })
}

func fadvise(fd int, offset, length int64, advice int) error {
	return unix.Fadvise(fd, offset, length, advice)
}

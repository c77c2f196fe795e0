package xio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Darwin has no posix_fadvise, Fadvise accepts the advice and does nothing.
const (
	FADV_NORMAL     = 0
	FADV_SEQUENTIAL = 1
	FADV_RANDOM     = 2
	FADV_WILLNEED   = 3
	FADV_DONTNEED   = 4
	FADV_NOREUSE    = 5
)

func socket(family, socktype, protocol int) (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := IgnoreEINTR2(func() (int, error) {
		return unix.Socket(family, socktype, protocol)
	})
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func accept(fd int) (int, unix.Sockaddr, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	conn, addr, err := IgnoreEINTR3(func() (int, unix.Sockaddr, error) {
		return unix.Accept(fd)
	})
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(conn)
	return conn, addr, nil
}

func fsync(fd int) error {
	return IgnoreEINTR(func() error { return unix.Fsync(fd) })
}

// fsync(2) on Darwin does not ask the drive to flush its cache, F_FULLFSYNC
// does.
func fullFsync(fd int) error {
	_, err := IgnoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
	})
	return err
}

// fallocate emulates fallocate(2) with F_PREALLOCATE, trying a contiguous
// allocation first, then extends the file to cover the allocated range. The
// mode is ignored.
func fallocate(fd int, mode uint32, offset, length int64) error {
	store := unix.Fstore_t{
		Flags:   unix.F_ALLOCATECONTIG,
		Posmode: unix.F_PEOFPOSMODE,
		Offset:  0,
		Length:  offset + length,
	}
	err := IgnoreEINTR(func() error { return unix.FcntlFstore(uintptr(fd), unix.F_PREALLOCATE, &store) })
	if err != nil {
		store.Flags = unix.F_ALLOCATEALL
		err = IgnoreEINTR(func() error { return unix.FcntlFstore(uintptr(fd), unix.F_PREALLOCATE, &store) })
	}
	if err != nil {
		return err
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return err
	}
	if stat.Size >= offset+length {
		return nil
	}
	return IgnoreEINTR(func() error { return unix.Ftruncate(fd, offset+length) })
}

func fadvise(fd int, offset, length int64, advice int) error {
	return nil
}

//go:build linux || darwin

package xio

import (
	"syscall"

	"github.com/hiproz/Xapiand/pkg/fdcheck"
	"golang.org/x/sys/unix"
)

// Open opens path with close-on-exec set. Descriptors lower than the minimum
// descriptor of x are moved above it before being returned.
func (x *IO) Open(path string, flags int, mode uint32) (int, error) {
	fd, err := IgnoreEINTR2(func() (int, error) {
		return unix.Open(path, flags|unix.O_CLOEXEC, mode)
	})
	if err != nil {
		return -1, err
	}
	if fd < x.minfd {
		newfd, err := IgnoreEINTR2(func() (int, error) {
			return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, x.minfd)
		})
		unix.Close(fd)
		if err != nil {
			return -1, err
		}
		fd = newfd
	}
	fdcheck.OpenFile.Run(x.check, 1, "while opening as file", fd)
	return fd, nil
}

// Close closes fd. The call is never retried: the state of a descriptor after
// close returned EINTR is unspecified and the number may have been reused
// already. The descriptor is only marked closed if the call succeeded.
func (x *IO) Close(fd int) error {
	fdcheck.Closing.Run(x.check, 1, "while closing", fd)
	if err := unix.Close(fd); err != nil {
		return err
	}
	fdcheck.Close.Run(x.check, 1, "while closing", fd)
	return nil
}

// Read reads up to len(b) bytes from fd.
func (x *IO) Read(fd int, b []byte) (int, error) {
	x.opened("during read()", fd)
	return handleEINTR(func() (int, error) { return unix.Read(fd, b) })
}

// Pread reads up to len(b) bytes from fd at offset.
func (x *IO) Pread(fd int, b []byte, offset int64) (int, error) {
	x.opened("during pread()", fd)
	return handleEINTR(func() (int, error) { return unix.Pread(fd, b, offset) })
}

// Write writes all of b to fd. It returns the number of bytes written, which
// is less than len(b) only if an error occurred. The system call is made at
// least once, an empty b still reports the errors of write(2).
func (x *IO) Write(fd int, b []byte) (int, error) {
	x.opened("during write()", fd)
	written := 0
	for {
		n, err := handleEINTR(func() (int, error) { return unix.Write(fd, b[written:]) })
		if n > 0 {
			written += n
		}
		if err != nil {
			return written, err
		}
		if written == len(b) {
			return written, nil
		}
		if n == 0 {
			return written, unix.EIO
		}
	}
}

// Pwrite writes all of b to fd at offset, see Write.
func (x *IO) Pwrite(fd int, b []byte, offset int64) (int, error) {
	x.opened("during pwrite()", fd)
	written := 0
	for {
		n, err := handleEINTR(func() (int, error) {
			return unix.Pwrite(fd, b[written:], offset+int64(written))
		})
		if n > 0 {
			written += n
		}
		if err != nil {
			return written, err
		}
		if written == len(b) {
			return written, nil
		}
		if n == 0 {
			return written, unix.EIO
		}
	}
}

// Unlink removes path.
func (x *IO) Unlink(path string) error {
	return IgnoreEINTR(func() error { return unix.Unlink(path) })
}

// Lseek repositions the offset of fd. POSIX does not specify EINTR for lseek
// and a relative seek cannot be retried safely, the call is not retried.
func (x *IO) Lseek(fd int, offset int64, whence int) (int64, error) {
	x.opened("during lseek()", fd)
	return unix.Seek(fd, offset, whence)
}

// Fcntl performs the fcntl commands taking an integer argument.
func (x *IO) Fcntl(fd, cmd, arg int) (int, error) {
	x.opened("during fcntl()", fd)
	return x.UncheckedFcntl(fd, cmd, arg)
}

// UncheckedFcntl is Fcntl without the descriptor check, for descriptors that
// were not obtained through x.
func (x *IO) UncheckedFcntl(fd, cmd, arg int) (int, error) {
	return IgnoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), cmd, arg)
	})
}

// FcntlFlock performs the record locking fcntl commands (F_GETLK, F_SETLK,
// F_SETLKW).
func (x *IO) FcntlFlock(fd, cmd int, lock *unix.Flock_t) error {
	x.opened("during fcntl()", fd)
	return IgnoreEINTR(func() error {
		return unix.FcntlFlock(uintptr(fd), cmd, lock)
	})
}

// Fstat returns the status of fd in stat.
func (x *IO) Fstat(fd int, stat *unix.Stat_t) error {
	x.opened("during fstat()", fd)
	return IgnoreEINTR(func() error { return unix.Fstat(fd, stat) })
}

// Dup duplicates fd with close-on-exec set. The new descriptor is tracked with
// the same kind as fd.
func (x *IO) Dup(fd int) (int, error) {
	x.opened("during dup()", fd)
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	newfd, err := IgnoreEINTR2(func() (int, error) {
		return unix.Dup(fd)
	})
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(newfd)
	x.duplicated(fd, newfd)
	return newfd, nil
}

// Dup2 duplicates fd onto newfd, closing newfd first if it was open.
func (x *IO) Dup2(fd, newfd int) error {
	x.opened("during dup2()", fd)
	if err := IgnoreEINTR(func() error { return unix.Dup2(fd, newfd) }); err != nil {
		return err
	}
	if fd == newfd {
		return nil
	}
	if state := x.check.State(newfd); state.Has(fdcheck.Opened) {
		// dup2 closed the previous descriptor silently.
		fdcheck.Close.Run(x.check, 1, "during dup2()", newfd)
	}
	x.duplicated(fd, newfd)
	return nil
}

func (x *IO) duplicated(fd, newfd int) {
	if x.check.State(fd).Has(fdcheck.Socket) {
		fdcheck.OpenSocket.Run(x.check, 2, "while opening as socket", newfd)
	} else {
		fdcheck.OpenFile.Run(x.check, 2, "while opening as file", newfd)
	}
}

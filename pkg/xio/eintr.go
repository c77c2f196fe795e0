//go:build linux || darwin

package xio

import "golang.org/x/sys/unix"

// IgnoreEINTR calls f until it returns an error other than EINTR, which is
// returned when a signal was handled instead of executing the system call.
//
// f is evaluated exactly once per attempt and other errors are returned
// unchanged. The loop is unbounded: callers needing a deadline must bound the
// system call itself.
func IgnoreEINTR(f func() error) error {
	for {
		if err := f(); err != unix.EINTR {
			return err
		}
	}
}

// IgnoreEINTR2 is IgnoreEINTR for calls returning a value.
func IgnoreEINTR2[F func() (R, error), R any](f F) (R, error) {
	for {
		v, err := f()
		if err != unix.EINTR {
			return v, err
		}
	}
}

// IgnoreEINTR3 is IgnoreEINTR for calls returning two values.
func IgnoreEINTR3[F func() (R1, R2, error), R1, R2 any](f F) (R1, R2, error) {
	for {
		v1, v2, err := f()
		if err != unix.EINTR {
			return v1, v2, err
		}
	}
}

// handleEINTR retries read and write shaped calls. An interruption after some
// bytes were transferred is reported as a short transfer. The x/sys wrappers
// return -1 on every error, so only callers reporting partial counts along
// with EINTR reach that case.
func handleEINTR(f func() (int, error)) (int, error) {
	for {
		n, err := f()
		if err == unix.EINTR {
			if n <= 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

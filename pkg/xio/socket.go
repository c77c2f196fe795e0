//go:build linux || darwin

package xio

import (
	"github.com/hiproz/Xapiand/pkg/fdcheck"
	"golang.org/x/sys/unix"
)

// Socket creates a socket with close-on-exec set.
func (x *IO) Socket(family, socktype, protocol int) (int, error) {
	fd, err := socket(family, socktype, protocol)
	if err != nil {
		return -1, err
	}
	fdcheck.OpenSocket.Run(x.check, 1, "while opening as socket", fd)
	return fd, nil
}

// Accept accepts a connection on the listening socket fd. The returned
// descriptor has close-on-exec set.
func (x *IO) Accept(fd int) (int, unix.Sockaddr, error) {
	x.openedSocket("during accept()", fd)
	conn, addr, err := accept(fd)
	if err != nil {
		return -1, nil, err
	}
	fdcheck.OpenSocket.Run(x.check, 1, "while opening as socket", conn)
	return conn, addr, nil
}

func (x *IO) Bind(fd int, addr unix.Sockaddr) error {
	x.openedSocket("during bind()", fd)
	return unix.Bind(fd, addr)
}

func (x *IO) Listen(fd, backlog int) error {
	x.openedSocket("during listen()", fd)
	return unix.Listen(fd, backlog)
}

// Connect connects fd to addr. A connection interrupted by a signal keeps
// being established asynchronously, retrying then returns EALREADY or
// EISCONN, which the caller handles like EINPROGRESS.
func (x *IO) Connect(fd int, addr unix.Sockaddr) error {
	x.openedSocket("during connect()", fd)
	return IgnoreEINTR(func() error { return unix.Connect(fd, addr) })
}

func (x *IO) Shutdown(fd, how int) error {
	x.openedSocket("during shutdown()", fd)
	return unix.Shutdown(fd, how)
}

// Send sends b on the connected socket fd.
func (x *IO) Send(fd int, b []byte, flags int) (int, error) {
	x.openedSocket("during send()", fd)
	return handleEINTR(func() (int, error) { return unix.SendmsgN(fd, b, nil, nil, flags) })
}

// Sendto sends b to addr on fd.
func (x *IO) Sendto(fd int, b []byte, flags int, addr unix.Sockaddr) (int, error) {
	x.openedSocket("during sendto()", fd)
	return handleEINTR(func() (int, error) { return unix.SendmsgN(fd, b, nil, addr, flags) })
}

// Recv receives up to len(b) bytes from the connected socket fd.
func (x *IO) Recv(fd int, b []byte, flags int) (int, error) {
	x.openedSocket("during recv()", fd)
	if flags == 0 {
		return handleEINTR(func() (int, error) { return unix.Read(fd, b) })
	}
	return handleEINTR(func() (int, error) {
		return discardAddrError(unix.Recvfrom(fd, b, flags))
	})
}

// discardAddrError drops the error returned by unix.Recvfrom when the data was
// received but the sender address could not be decoded. Failed system calls
// return a negative count.
func discardAddrError(n int, _ unix.Sockaddr, err error) (int, error) {
	if err != nil && n >= 0 {
		err = nil
	}
	return n, err
}

// Recvfrom receives up to len(b) bytes from fd and returns the address of the
// sender.
func (x *IO) Recvfrom(fd int, b []byte, flags int) (n int, from unix.Sockaddr, err error) {
	x.openedSocket("during recvfrom()", fd)
	for {
		n, from, err = unix.Recvfrom(fd, b, flags)
		// The x/sys wrappers report -1 on every error, the partial count case
		// only applies to wrappers which return the bytes transferred.
		if err != unix.EINTR || n > 0 {
			if err == unix.EINTR {
				err = nil
			}
			return n, from, err
		}
	}
}

func (x *IO) GetsockoptInt(fd, level, opt int) (int, error) {
	x.openedSocket("during getsockopt()", fd)
	return IgnoreEINTR2(func() (int, error) { return unix.GetsockoptInt(fd, level, opt) })
}

func (x *IO) SetsockoptInt(fd, level, opt, value int) error {
	x.openedSocket("during setsockopt()", fd)
	return IgnoreEINTR(func() error { return unix.SetsockoptInt(fd, level, opt, value) })
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hiproz/Xapiand/internal/config"
	"github.com/hiproz/Xapiand/internal/print/textprint"
	"github.com/hiproz/Xapiand/pkg/fdcheck"
	"github.com/hiproz/Xapiand/pkg/xio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

const probeUsage = `
Usage:	xio probe [options]

   Exercises the system call wrappers on a temporary file and on a pair of
   TCP sockets connected over the loopback interface, then reports the result
   of each call.

   When descriptor checks are enabled, failed checks are logged on stderr.
   The --violation option closes a descriptor then writes to it, which the
   validator reports as a use-after-close.

Options:
       --abort          Panic on the first failed descriptor check (overrides check.violation)
   -c, --config path    Path to the xio configuration file (overrides XIOCONFIG)
       --check          Enable descriptor checks (overrides check.enabled)
       --dir path       Directory where the temporary file is created (default: $TMPDIR)
   -h, --help           Show usage information
       --metrics        Print the validator metrics in the Prometheus text format
       --violation      Provoke a use-after-close
`

type probeStep struct {
	Call   string `text:"CALL"`
	Result string `text:"RESULT"`
}

type prober struct {
	io    *xio.IO
	steps []probeStep
	err   error
}

// do records the outcome of a call. Once a call failed the following calls
// are skipped.
func (p *prober) do(call string, f func() error) {
	if p.err != nil {
		p.steps = append(p.steps, probeStep{Call: call, Result: "skipped"})
		return
	}
	err := f()
	p.steps = append(p.steps, probeStep{Call: call, Result: xio.ErrnoName(err)})
	if err != nil {
		p.err = fmt.Errorf("%s: %w", call, err)
	}
}

func probe(ctx context.Context, args []string) (err error) {
	var (
		abort     bool
		check     bool
		metrics   bool
		violation bool
		dir       = config.Path(os.TempDir())
	)

	flagSet := newFlagSet("xio probe", probeUsage)
	boolVar(flagSet, &abort, "abort")
	boolVar(flagSet, &check, "check")
	boolVar(flagSet, &metrics, "metrics")
	boolVar(flagSet, &violation, "violation")
	customVar(flagSet, &dir, "dir")

	args, err = parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return usageError("xio probe: unexpected arguments: %q", args)
	}

	c, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if check {
		c.Check.Enabled = config.NullableValue(true)
	}
	if abort {
		c.Check.Violation = config.ViolationAbort
	}

	logger := c.NewLogger()
	logger.SetOutput(stderr)

	var validator *fdcheck.Validator
	var checker fdcheck.Checker = fdcheck.Nop
	if c.CheckEnabled() {
		validator = c.NewValidator(logger)
		checker = validator
	}
	logger.WithField("checks", c.CheckEnabled()).Debug("probing system calls")

	path, err := dir.Resolve()
	if err != nil {
		return err
	}

	p := &prober{io: c.NewIO(checker)}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		v, ok := r.(*fdcheck.Violation)
		if !ok {
			panic(r)
		}
		p.steps = append(p.steps, probeStep{Call: v.Message, Result: "aborted"})
		err = errors.Join(p.print(), fmt.Errorf("aborted: %w", v))
	}()

	p.file(filepath.Join(path, "xio-probe-"+uuid.NewString()))
	p.sockets(ctx)
	if violation {
		p.useAfterClose(filepath.Join(path, "xio-probe-"+uuid.NewString()))
	}

	if err := p.print(); err != nil {
		return err
	}
	if metrics {
		if validator == nil {
			logger.Warn("descriptor checks are disabled, there are no metrics to print")
		} else if err := writeMetrics(validator); err != nil {
			return err
		}
	}
	return p.err
}

func (p *prober) print() error {
	w := textprint.NewTableWriter[probeStep](stdout)
	w.Write(p.steps...)
	return w.Close()
}

func (p *prober) file(path string) {
	x := p.io
	fd := -1
	buf := make([]byte, 64)

	p.do("open", func() (err error) {
		fd, err = x.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0600)
		return err
	})
	defer func() {
		if fd >= 0 {
			x.Close(fd)
			x.Unlink(path)
		}
	}()

	p.do("write", func() error {
		_, err := x.Write(fd, []byte("hello, world!"))
		return err
	})
	p.do("pwrite", func() error {
		_, err := x.Pwrite(fd, []byte("W"), 7)
		return err
	})
	p.do("lseek", func() error {
		_, err := x.Lseek(fd, 0, unix.SEEK_SET)
		return err
	})
	p.do("read", func() error {
		n, err := x.Read(fd, buf)
		if err == nil && string(buf[:n]) != "hello, World!" {
			err = unix.EIO
		}
		return err
	})
	p.do("pread", func() error {
		_, err := x.Pread(fd, buf[:5], 7)
		return err
	})
	p.do("fstat", func() error {
		var stat unix.Stat_t
		return x.Fstat(fd, &stat)
	})
	p.do("fcntl", func() error {
		_, err := x.Fcntl(fd, unix.F_GETFL, 0)
		return err
	})
	p.do("flock", func() error {
		lock := unix.Flock_t{Type: unix.F_WRLCK, Whence: unix.SEEK_SET}
		return x.FcntlFlock(fd, unix.F_SETLK, &lock)
	})
	p.do("fallocate", func() error {
		return x.Fallocate(fd, 0, 0, 4096)
	})
	p.do("fadvise", func() error {
		return x.Fadvise(fd, 0, 0, xio.FADV_SEQUENTIAL)
	})
	p.do("fsync", func() error {
		return x.Fsync(fd)
	})
	p.do("full_fsync", func() error {
		return x.FullFsync(fd)
	})
	p.do("dup", func() error {
		newfd, err := x.Dup(fd)
		if err != nil {
			return err
		}
		return x.Close(newfd)
	})
	p.do("close", func() error {
		err := x.Close(fd)
		fd = -1
		return err
	})
	p.do("unlink", func() error {
		return x.Unlink(path)
	})
}

func (p *prober) sockets(ctx context.Context) {
	x := p.io
	lfd, client, server := -1, -1, -1
	defer func() {
		for _, fd := range []int{server, client, lfd} {
			if fd >= 0 {
				x.Close(fd)
			}
		}
	}()

	p.do("socket", func() (err error) {
		lfd, err = x.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
		return err
	})
	p.do("setsockopt", func() error {
		return x.SetsockoptInt(lfd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	p.do("bind", func() error {
		return x.Bind(lfd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}})
	})
	p.do("listen", func() error {
		return x.Listen(lfd, 1)
	})

	p.do("connect", func() (err error) {
		sa, err := unix.Getsockname(lfd)
		if err != nil {
			return err
		}
		if client, err = x.Socket(unix.AF_INET, unix.SOCK_STREAM, 0); err != nil {
			return err
		}
		// completes in the listen backlog
		return x.Connect(client, sa)
	})
	p.do("accept", func() (err error) {
		server, _, err = x.Accept(lfd)
		return err
	})

	// Each side sends a message then waits for the message of its peer. A
	// side failing shuts its socket down so the peer does not wait forever.
	p.do("exchange", func() error {
		group, _ := errgroup.WithContext(ctx)
		group.Go(func() error {
			err := exchange(client, "ping", "pong", func(fd int, b []byte) (int, error) {
				return x.Send(fd, b, 0)
			}, func(fd int, b []byte) (int, error) {
				n, _, err := x.Recvfrom(fd, b, 0)
				return n, err
			})
			if err != nil {
				x.Shutdown(client, unix.SHUT_RDWR)
			}
			return err
		})
		group.Go(func() error {
			err := exchange(server, "pong", "ping", func(fd int, b []byte) (int, error) {
				return x.Sendto(fd, b, 0, nil)
			}, func(fd int, b []byte) (int, error) {
				return x.Recv(fd, b, 0)
			})
			if err != nil {
				x.Shutdown(server, unix.SHUT_RDWR)
			}
			return err
		})
		return group.Wait()
	})
	p.do("getsockopt", func() error {
		_, err := x.GetsockoptInt(client, unix.SOL_SOCKET, unix.SO_ERROR)
		return err
	})
	p.do("shutdown", func() error {
		return x.Shutdown(client, unix.SHUT_RDWR)
	})
}

// useAfterClose writes to a descriptor after closing it. The write fails with
// EBADF, which is the expected result.
func (p *prober) useAfterClose(path string) {
	x := p.io
	if p.err != nil {
		p.do("write after close", nil)
		return
	}
	fd, err := x.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_WRONLY, 0600)
	if err != nil {
		p.do("write after close", func() error { return err })
		return
	}
	x.Close(fd)
	x.Unlink(path)

	p.do("write after close", func() error {
		_, err := x.Write(fd, []byte("x"))
		if errors.Is(err, unix.EBADF) {
			return nil
		}
		if err == nil {
			// the descriptor number was reused by another file
			err = unix.EEXIST
		}
		return err
	})
}

func exchange(fd int, send, expect string, write, read func(int, []byte) (int, error)) error {
	if _, err := write(fd, []byte(send)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	buf := make([]byte, len(expect))
	for n := 0; n < len(buf); {
		r, err := read(fd, buf[n:])
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		if r == 0 {
			return fmt.Errorf("recv: %w", unix.ECONNRESET)
		}
		n += r
	}
	if string(buf) != expect {
		return fmt.Errorf("recv: unexpected message: %q", buf)
	}
	return nil
}

func writeMetrics(c prometheus.Collector) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return err
	}
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

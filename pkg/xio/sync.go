//go:build linux || darwin

package xio

// Fsync flushes the data of fd to the storage device.
func (x *IO) Fsync(fd int) error {
	x.opened("during fsync()", fd)
	return fsync(fd)
}

// UncheckedFsync is Fsync without the descriptor check.
func (x *IO) UncheckedFsync(fd int) error {
	return fsync(fd)
}

// FullFsync is Fsync, but also asks the drive to flush its write cache on
// platforms where fsync does not.
func (x *IO) FullFsync(fd int) error {
	x.opened("during full_fsync()", fd)
	return fullFsync(fd)
}

func (x *IO) UncheckedFullFsync(fd int) error {
	return fullFsync(fd)
}

// Fallocate reserves storage for the byte range [offset, offset+length) of
// fd. On Darwin the file is extended to cover the range and mode is ignored.
func (x *IO) Fallocate(fd int, mode uint32, offset, length int64) error {
	x.opened("during fallocate()", fd)
	return fallocate(fd, mode, offset, length)
}

// Fadvise declares the access pattern of the byte range of fd with one of the
// FADV_* constants. The call does nothing on platforms lacking posix_fadvise.
func (x *IO) Fadvise(fd int, offset, length int64, advice int) error {
	x.opened("during fadvise()", fd)
	return fadvise(fd, offset, length, advice)
}

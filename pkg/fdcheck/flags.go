package fdcheck

import (
	"strconv"
	"strings"
)

// Flags is the set of states tracked for a descriptor number.
type Flags uint8

const (
	// Opened is set when a descriptor was returned by a call creating it.
	Opened Flags = 1 << iota
	// Socket marks descriptors that were created as sockets. It is a kind,
	// not a state, and is never cleared by a close.
	Socket
	// Closed is set once the descriptor was successfully closed.
	Closed
)

var flagNames = [...]struct {
	flag Flags
	name string
}{
	{Opened, "OPENED"},
	{Socket, "SOCKET"},
	{Closed, "CLOSED"},
}

func (f Flags) Has(flags Flags) bool {
	return (f & flags) == flags
}

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	var names []string
	for _, n := range flagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if extra := f &^ (Opened | Socket | Closed); extra != 0 {
		names = append(names, "0x"+strconv.FormatUint(uint64(extra), 16))
	}
	return strings.Join(names, "|")
}

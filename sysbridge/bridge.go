// Package sysbridge translates system calls made by a guest program into host system calls or local emulation.
package sysbridge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zircon-rv/zircon/internal/hostcall"
	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/mem"
	"golang.org/x/sys/unix"
)

// ErrUnimplemented is wrapped by UnimplementedError
var ErrUnimplemented = errors.New("unimplemented system call")

// UnimplementedError is returned for system call numbers which are neither forwarded nor emulated.
type UnimplementedError struct {
	Number uint64
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("%s %d", ErrUnimplemented, e.Number)
}

func (e *UnimplementedError) Unwrap() error {
	return ErrUnimplemented
}

// State is the view of a hart that system call handlers work with.
type State interface {
	Registers() *isa.RegisterFile
	Memory() *mem.AddressSpace
	// Exit halts the hart with the given exit code
	Exit(code uint64)
}

// Bridge dispatches system calls using a table.
type Bridge struct {
	Table  *Table
	Logger *slog.Logger
}

// NewBridge creates a bridge for table, if table is nil the default table is used.
func NewBridge(table *Table) *Bridge {
	if table == nil {
		table = DefaultTable()
	}

	return &Bridge{
		Table:  table,
		Logger: slog.Default(),
	}
}

// Dispatch performs the system call requested by the registers of s. The number is read from a7, the arguments
// from a0 to a5 and the result is written to a0. Host failures are returned to the guest as negative error
// numbers, only unknown system calls and handler failures are returned as error.
func (b *Bridge) Dispatch(s State) error {
	gpr := s.Registers().GPR

	nr, err := gpr.Read(isa.RegA7)
	if err != nil {
		return err
	}

	var args [6]uint64
	for i := range args {
		args[i], err = gpr.Read(isa.RegA0 + uint(i))
		if err != nil {
			return err
		}
	}

	e, ok := b.Table.Lookup(nr)
	if !ok || (e.Host == NoHost && e.Emulate == nil) {
		return &UnimplementedError{Number: nr}
	}

	var ret uint64
	if e.Host != NoHost {
		ret = b.forward(s.Memory(), e, args)
	} else {
		ret, err = e.Emulate(s, args)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
	}

	if b.Logger != nil {
		attrs := []any{"name", e.Name, "nr", nr, "args", args, "ret", int64(ret), "forwarded", e.Host != NoHost}
		if err := hostcall.Failed(e.Name, ret); err != nil {
			attrs = append(attrs, "err", err)
		}
		b.Logger.Debug("syscall", attrs...)
	}

	return gpr.Write(isa.RegA0, ret)
}

func (b *Bridge) forward(as *mem.AddressSpace, e Entry, args [6]uint64) uint64 {
	var hostArgs [6]uintptr
	for i, arg := range args {
		hostArgs[i] = uintptr(arg)
		if (e.Pointers|e.MaybePointers)&(1<<i) == 0 || arg == 0 {
			continue
		}

		raw := as.Raw(arg)
		if raw == nil {
			if e.MaybePointers&(1<<i) != 0 {
				continue
			}
			return hostcall.Negate(unix.EFAULT)
		}
		hostArgs[i] = hostcall.Addr(raw)
	}

	// The kernel must not touch host memory past the end of the guest region
	for _, buf := range e.Buffers {
		if args[buf.Ptr] == 0 {
			continue
		}
		if uint64(len(as.Raw(args[buf.Ptr]))) < args[buf.Len] {
			return hostcall.Negate(unix.EFAULT)
		}
	}

	return hostcall.Syscall(uintptr(e.Host), hostArgs)
}

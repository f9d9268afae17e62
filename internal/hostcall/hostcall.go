// Package hostcall is the boundary through which guest system calls reach the host kernel.
package hostcall

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Error describes a failed host system call.
type Error struct {
	// Name of the system call which failed
	Err string
	// The underlaying syscall error number
	Errno unix.Errno
}

func (e *Error) Error() string {
	if e.Err == "" {
		return fmt.Sprintf("%s (%d)", e.Errno.Error(), e.Errno)
	}

	return fmt.Sprintf("%s (%s)(%d)", e.Err, e.Errno.Error(), e.Errno)
}

func (e *Error) Unwrap() error {
	return e.Errno
}

// Negate encodes errno the way system calls report errors to guest programs.
func Negate(errno unix.Errno) uint64 {
	return uint64(-int64(errno))
}

// Result converts the result of an x/sys/unix wrapper into a guest return value.
func Result(n int, err error) uint64 {
	if err == nil {
		return uint64(n)
	}

	var errno unix.Errno
	if errors.As(err, &errno) {
		return Negate(errno)
	}

	return Negate(unix.EIO)
}

// Failed returns a non-nil *Error if ret is a negated error number.
func Failed(name string, ret uint64) error {
	// Linux reserves the top 4095 values for error numbers
	if ret <= ^uint64(4095) {
		return nil
	}

	return &Error{Err: name, Errno: unix.Errno(-int64(ret))}
}

// Addr returns the host address of the first byte of b. b must not be allocated by the Go runtime.
func Addr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&b[0]))
}

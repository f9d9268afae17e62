//go:build !linux

package hostcall

import "golang.org/x/sys/unix"

// Syscall always fails with ENOSYS, the guest system call numbers are only forwarded on Linux hosts.
func Syscall(trap uintptr, args [6]uintptr) uint64 {
	return Negate(unix.ENOSYS)
}

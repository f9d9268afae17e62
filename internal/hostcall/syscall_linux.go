package hostcall

import "golang.org/x/sys/unix"

// Syscall invokes host system call trap with six arguments. Pointer arguments must point to memory the Go runtime
// does not move. On failure the negated error number is returned.
func Syscall(trap uintptr, args [6]uintptr) uint64 {
	r1, _, errno := unix.Syscall6(trap, args[0], args[1], args[2], args[3], args[4], args[5])
	if errno != 0 {
		return Negate(errno)
	}

	return uint64(r1)
}

//go:build linux && (amd64 || arm64 || riscv64)

package sysbridge

import "golang.org/x/sys/unix"

// hostNumbers maps guest system calls to the host system calls with the same arguments. Only 64-bit hosts are
// listed, their argument registers are as wide as the guest's.
var hostNumbers = map[uint64]uintptr{
	SysGetcwd:       unix.SYS_GETCWD,
	SysDup:          unix.SYS_DUP,
	SysDup3:         unix.SYS_DUP3,
	SysFcntl:        unix.SYS_FCNTL,
	SysIoctl:        unix.SYS_IOCTL,
	SysMkdirat:      unix.SYS_MKDIRAT,
	SysUnlinkat:     unix.SYS_UNLINKAT,
	SysFaccessat:    unix.SYS_FACCESSAT,
	SysOpenat:       unix.SYS_OPENAT,
	SysClose:        unix.SYS_CLOSE,
	SysPipe2:        unix.SYS_PIPE2,
	SysLseek:        unix.SYS_LSEEK,
	SysRead:         unix.SYS_READ,
	SysWrite:        unix.SYS_WRITE,
	SysPread64:      unix.SYS_PREAD64,
	SysPwrite64:     unix.SYS_PWRITE64,
	SysReadlinkat:   unix.SYS_READLINKAT,
	SysNanosleep:    unix.SYS_NANOSLEEP,
	SysClockGettime: unix.SYS_CLOCK_GETTIME,
	SysGetpid:       unix.SYS_GETPID,
	SysGetuid:       unix.SYS_GETUID,
	SysGeteuid:      unix.SYS_GETEUID,
	SysGetgid:       unix.SYS_GETGID,
	SysGetegid:      unix.SYS_GETEGID,
	SysGettid:       unix.SYS_GETTID,
	SysGetrandom:    unix.SYS_GETRANDOM,
}

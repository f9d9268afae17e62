package sysbridge

// Guest system call numbers of the generic Linux system call table used by riscv64
const (
	SysGetcwd        = 17
	SysDup           = 23
	SysDup3          = 24
	SysFcntl         = 25
	SysIoctl         = 29
	SysMkdirat       = 34
	SysUnlinkat      = 35
	SysFaccessat     = 48
	SysOpenat        = 56
	SysClose         = 57
	SysPipe2         = 59
	SysLseek         = 62
	SysRead          = 63
	SysWrite         = 64
	SysReadv         = 65
	SysWritev        = 66
	SysPread64       = 67
	SysPwrite64      = 68
	SysReadlinkat    = 78
	SysNewfstatat    = 79
	SysFstat         = 80
	SysExit          = 93
	SysExitGroup     = 94
	SysSetTidAddress = 96
	SysSetRobustList = 99
	SysNanosleep     = 101
	SysClockGettime  = 113
	SysRtSigaction   = 134
	SysRtSigprocmask = 135
	SysUname         = 160
	SysGetpid        = 172
	SysGetuid        = 174
	SysGeteuid       = 175
	SysGetgid        = 176
	SysGetegid       = 177
	SysGettid        = 178
	SysBrk           = 214
	SysMunmap        = 215
	SysMmap          = 222
	SysMprotect      = 226
	SysMadvise       = 233
	SysPrlimit64     = 261
	SysGetrandom     = 278
)

package sysbridge

import (
	"sort"
)

// NoHost marks an entry which has no host equivalent
const NoHost = -1

// Handler emulates a system call, the returned value is written to a0.
type Handler func(s State, args [6]uint64) (uint64, error)

// Buffer pairs a pointer argument with the argument holding the size of the buffer it points to.
type Buffer struct {
	Ptr int
	Len int
}

// Entry describes how a single guest system call is handled.
type Entry struct {
	Name  string
	Guest uint64
	// Host system call number or NoHost
	Host int
	// Pointers has bit i set if argument i is a guest address which has to be translated
	Pointers uint8
	// MaybePointers has bit i set if argument i is translated only when it points into guest memory, like the
	// argument of ioctl which is an integer for some requests
	MaybePointers uint8
	// Buffers are checked against the size of the guest region before the host call is made
	Buffers []Buffer
	// Emulate handles the call locally if Host is NoHost
	Emulate Handler
}

// Table maps guest system call numbers to entries.
type Table struct {
	entries map[uint64]Entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[uint64]Entry),
	}
}

// Register adds e to the table, replacing an existing entry for the same guest number.
func (t *Table) Register(e Entry) {
	t.entries[e.Guest] = e
}

// Lookup returns the entry for guest system call nr.
func (t *Table) Lookup(nr uint64) (Entry, bool) {
	e, ok := t.entries[nr]
	return e, ok
}

// Entries returns all entries ordered by guest number.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Guest < entries[j].Guest
	})

	return entries
}

func pointers(args ...int) uint8 {
	var mask uint8
	for _, a := range args {
		mask |= 1 << a
	}
	return mask
}

// DefaultTable returns the system calls needed by statically linked Linux programs. Calls are forwarded when the
// host has an equivalent system call with the same argument layout, emulated otherwise.
func DefaultTable() *Table {
	t := NewTable()

	forwarded := []Entry{
		{Name: "getcwd", Guest: SysGetcwd, Pointers: pointers(0), Buffers: []Buffer{{0, 1}}},
		{Name: "dup", Guest: SysDup},
		{Name: "dup3", Guest: SysDup3},
		{Name: "fcntl", Guest: SysFcntl},
		{Name: "ioctl", Guest: SysIoctl, MaybePointers: pointers(2)},
		{Name: "mkdirat", Guest: SysMkdirat, Pointers: pointers(1)},
		{Name: "unlinkat", Guest: SysUnlinkat, Pointers: pointers(1)},
		{Name: "faccessat", Guest: SysFaccessat, Pointers: pointers(1)},
		{Name: "openat", Guest: SysOpenat, Pointers: pointers(1)},
		{Name: "close", Guest: SysClose},
		{Name: "pipe2", Guest: SysPipe2, Pointers: pointers(0)},
		{Name: "lseek", Guest: SysLseek},
		{Name: "read", Guest: SysRead, Pointers: pointers(1), Buffers: []Buffer{{1, 2}}},
		{Name: "write", Guest: SysWrite, Pointers: pointers(1), Buffers: []Buffer{{1, 2}}},
		{Name: "pread64", Guest: SysPread64, Pointers: pointers(1), Buffers: []Buffer{{1, 2}}},
		{Name: "pwrite64", Guest: SysPwrite64, Pointers: pointers(1), Buffers: []Buffer{{1, 2}}},
		{Name: "readlinkat", Guest: SysReadlinkat, Pointers: pointers(1, 2), Buffers: []Buffer{{2, 3}}},
		{Name: "nanosleep", Guest: SysNanosleep, Pointers: pointers(0, 1)},
		{Name: "clock_gettime", Guest: SysClockGettime, Pointers: pointers(1)},
		{Name: "getpid", Guest: SysGetpid},
		{Name: "getuid", Guest: SysGetuid},
		{Name: "geteuid", Guest: SysGeteuid},
		{Name: "getgid", Guest: SysGetgid},
		{Name: "getegid", Guest: SysGetegid},
		{Name: "gettid", Guest: SysGettid},
		{Name: "getrandom", Guest: SysGetrandom, Pointers: pointers(0), Buffers: []Buffer{{0, 1}}},
	}

	for _, e := range forwarded {
		e.Host = NoHost
		if host, ok := hostNumbers[e.Guest]; ok {
			e.Host = int(host)
		}
		t.Register(e)
	}

	emulated := append([]Entry{
		{Name: "brk", Guest: SysBrk, Emulate: sysBrk},
		{Name: "exit", Guest: SysExit, Emulate: sysExit},
		{Name: "exit_group", Guest: SysExitGroup, Emulate: sysExit},
		{Name: "set_tid_address", Guest: SysSetTidAddress, Emulate: sysSetTidAddress},
		{Name: "set_robust_list", Guest: SysSetRobustList, Emulate: sysNop},
		{Name: "rt_sigaction", Guest: SysRtSigaction, Emulate: sysNop},
		{Name: "rt_sigprocmask", Guest: SysRtSigprocmask, Emulate: sysNop},
		{Name: "uname", Guest: SysUname, Emulate: sysUname},
		{Name: "mmap", Guest: SysMmap, Emulate: sysMmap},
		{Name: "munmap", Guest: SysMunmap, Emulate: sysNop},
		{Name: "mprotect", Guest: SysMprotect, Emulate: sysNop},
		{Name: "madvise", Guest: SysMadvise, Emulate: sysNop},
		{Name: "prlimit64", Guest: SysPrlimit64, Emulate: sysPrlimit64},
	}, platformEntries()...)

	for _, e := range emulated {
		e.Host = NoHost
		t.Register(e)
	}

	return t
}

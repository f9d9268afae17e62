package sysbridge

import (
	"encoding/binary"
	"os"

	"github.com/zircon-rv/zircon/internal/cstr"
	"github.com/zircon-rv/zircon/internal/hostcall"
	"github.com/zircon-rv/zircon/mem"
	"golang.org/x/sys/unix"
)

// Guest ABI constants, these may differ from the host's
const (
	guestPageSize     = 4096
	guestMapFixed     = 0x10
	guestMapAnonymous = 0x20
	rlimInfinity      = ^uint64(0)
	utsFieldLen       = 65
)

// DefaultMmapBase is where anonymous mappings are placed when the address space has no mmap_end anchor yet.
const DefaultMmapBase = 0x200000000

func fault() uint64 {
	return hostcall.Negate(unix.EFAULT)
}

func sysNop(s State, args [6]uint64) (uint64, error) {
	return 0, nil
}

func sysExit(s State, args [6]uint64) (uint64, error) {
	s.Exit(args[0])
	return args[0], nil
}

func sysSetTidAddress(s State, args [6]uint64) (uint64, error) {
	return uint64(os.Getpid()), nil
}

// sysBrk moves the end of the heap. Like the kernel it returns the current break for requests it does not honor.
func sysBrk(s State, args [6]uint64) (uint64, error) {
	as := s.Memory()
	start := as.Locations[mem.LocHeapStart]
	end := as.Locations[mem.LocHeapEnd]

	addr := args[0]
	if addr < start || addr == end {
		return end, nil
	}

	if addr > end {
		if err := as.Allocate(end, addr-end); err != nil {
			return end, nil
		}

		// Memory released by an earlier shrink is still mapped, the guest expects it zeroed
		grown := as.Raw(end)[:addr-end]
		for i := range grown {
			grown[i] = 0
		}
	}

	as.Locations[mem.LocHeapEnd] = addr
	return addr, nil
}

// sysMmap places new mappings above the heap, a private copy of the file contents is made for file mappings.
// Unmapping is a no-op so addresses are never reused.
func sysMmap(s State, args [6]uint64) (uint64, error) {
	as := s.Memory()
	length := mem.Align(args[1], guestPageSize)
	flags := args[3]
	if length == 0 {
		return hostcall.Negate(unix.EINVAL), nil
	}

	var addr uint64
	if flags&guestMapFixed != 0 {
		addr = args[0]
		if addr%guestPageSize != 0 {
			return hostcall.Negate(unix.EINVAL), nil
		}
	} else {
		addr = as.Locations[mem.LocMmapEnd]
		if addr == 0 {
			addr = DefaultMmapBase
		}
		as.Locations[mem.LocMmapEnd] = addr + length
	}

	if err := as.Allocate(addr, length); err != nil {
		return hostcall.Negate(unix.ENOMEM), nil
	}

	region := as.Raw(addr)[:length]
	if flags&guestMapFixed != 0 {
		for i := range region {
			region[i] = 0
		}
	}

	if flags&guestMapAnonymous == 0 {
		fd := int(int32(args[4]))
		if _, err := unix.Pread(fd, region, int64(args[5])); err != nil {
			return hostcall.Result(0, err), nil
		}
	}

	return addr, nil
}

func sysPrlimit64(s State, args [6]uint64) (uint64, error) {
	old := args[3]
	if old == 0 {
		return 0, nil
	}

	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:], rlimInfinity)
	binary.LittleEndian.PutUint64(b[8:], rlimInfinity)
	if err := s.Memory().WriteBytes(old, b[:]); err != nil {
		return fault(), nil
	}

	return 0, nil
}

// Uname reports a Linux kernel on a riscv64 machine, the host's node name is kept.
var Uname = struct {
	Sysname    string
	Release    string
	Version    string
	Machine    string
	Domainname string
}{
	Sysname:    "Linux",
	Release:    "6.1.0",
	Version:    "#1 SMP",
	Machine:    "riscv64",
	Domainname: "(none)",
}

func sysUname(s State, args [6]uint64) (uint64, error) {
	nodename, err := os.Hostname()
	if err != nil {
		nodename = "localhost"
	}

	fields := []string{Uname.Sysname, nodename, Uname.Release, Uname.Version, Uname.Machine, Uname.Domainname}
	b := make([]byte, len(fields)*utsFieldLen)
	for i, f := range fields {
		if len(f) >= utsFieldLen {
			f = f[:utsFieldLen-1]
		}
		copy(b[i*utsFieldLen:], cstr.Terminate(f))
	}

	if err := s.Memory().WriteBytes(args[0], b); err != nil {
		return fault(), nil
	}

	return 0, nil
}

// guestString reads the NUL-terminated string at addr.
func guestString(as *mem.AddressSpace, addr uint64) (string, bool) {
	raw := as.Raw(addr)
	if raw == nil {
		return "", false
	}

	return cstr.Read(raw)
}

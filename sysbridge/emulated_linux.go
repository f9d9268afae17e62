package sysbridge

import (
	"encoding/binary"

	"github.com/zircon-rv/zircon/internal/hostcall"
	"github.com/zircon-rv/zircon/mem"
	"golang.org/x/sys/unix"
)

const (
	guestStatSize = 128
	maxIovecs     = 1024
)

func platformEntries() []Entry {
	return []Entry{
		{Name: "readv", Guest: SysReadv, Emulate: sysReadv},
		{Name: "writev", Guest: SysWritev, Emulate: sysWritev},
		{Name: "newfstatat", Guest: SysNewfstatat, Emulate: sysNewfstatat},
		{Name: "fstat", Guest: SysFstat, Emulate: sysFstat},
	}
}

// iovecs resolves a guest iovec array into host slices of guest memory.
func iovecs(as *mem.AddressSpace, addr, cnt uint64) ([][]byte, uint64) {
	if cnt > maxIovecs {
		return nil, hostcall.Negate(unix.EINVAL)
	}

	raw, err := as.ReadBytes(addr, cnt*16)
	if err != nil {
		return nil, fault()
	}

	bufs := make([][]byte, 0, cnt)
	for i := uint64(0); i < cnt; i++ {
		base := binary.LittleEndian.Uint64(raw[i*16:])
		size := binary.LittleEndian.Uint64(raw[i*16+8:])
		if size == 0 {
			continue
		}

		b := as.Raw(base)
		if uint64(len(b)) < size {
			return nil, fault()
		}
		bufs = append(bufs, b[:size])
	}

	return bufs, 0
}

func sysWritev(s State, args [6]uint64) (uint64, error) {
	bufs, errno := iovecs(s.Memory(), args[1], args[2])
	if errno != 0 {
		return errno, nil
	}

	return hostcall.Result(unix.Writev(int(int32(args[0])), bufs)), nil
}

func sysReadv(s State, args [6]uint64) (uint64, error) {
	bufs, errno := iovecs(s.Memory(), args[1], args[2])
	if errno != 0 {
		return errno, nil
	}

	return hostcall.Result(unix.Readv(int(int32(args[0])), bufs)), nil
}

func sysFstat(s State, args [6]uint64) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(int32(args[0])), &st); err != nil {
		return hostcall.Result(0, err), nil
	}

	return writeStat(s.Memory(), args[1], &st), nil
}

func sysNewfstatat(s State, args [6]uint64) (uint64, error) {
	path, ok := guestString(s.Memory(), args[1])
	if !ok {
		return fault(), nil
	}

	var st unix.Stat_t
	if err := unix.Fstatat(int(int32(args[0])), path, &st, int(args[3])); err != nil {
		return hostcall.Result(0, err), nil
	}

	return writeStat(s.Memory(), args[2], &st), nil
}

// writeStat stores st in the layout of the generic struct stat used by riscv64.
func writeStat(as *mem.AddressSpace, addr uint64, st *unix.Stat_t) uint64 {
	var b [guestStatSize]byte
	le := binary.LittleEndian
	le.PutUint64(b[0:], uint64(st.Dev))
	le.PutUint64(b[8:], uint64(st.Ino))
	le.PutUint32(b[16:], uint32(st.Mode))
	le.PutUint32(b[20:], uint32(st.Nlink))
	le.PutUint32(b[24:], uint32(st.Uid))
	le.PutUint32(b[28:], uint32(st.Gid))
	le.PutUint64(b[32:], uint64(st.Rdev))
	le.PutUint64(b[48:], uint64(st.Size))
	le.PutUint32(b[56:], uint32(st.Blksize))
	le.PutUint64(b[64:], uint64(st.Blocks))
	le.PutUint64(b[72:], uint64(st.Atim.Sec))
	le.PutUint64(b[80:], uint64(st.Atim.Nsec))
	le.PutUint64(b[88:], uint64(st.Mtim.Sec))
	le.PutUint64(b[96:], uint64(st.Mtim.Nsec))
	le.PutUint64(b[104:], uint64(st.Ctim.Sec))
	le.PutUint64(b[112:], uint64(st.Ctim.Nsec))

	if err := as.WriteBytes(addr, b[:]); err != nil {
		return fault()
	}

	return 0
}

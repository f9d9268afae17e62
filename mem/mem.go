// Package mem implements the sparse, instrumented address space of a guest process.
package mem

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/zircon-rv/zircon/event"
	"golang.org/x/exp/slices"
)

// MaxRegionSize is the largest region a single allocation may create.
const MaxRegionSize = 1 << 40

// Names of the anchors in AddressSpace.Locations
const (
	LocHeapStart  = "heap_start"
	LocHeapEnd    = "heap_end"
	LocStackStart = "stack_start"
	LocStackEnd   = "stack_end"
	LocMmapEnd    = "mmap_end"
)

// Region is a contiguous, allocated range of guest memory.
type Region struct {
	Base uint64
	Data []byte

	// the slice as returned by the mapping call, needed to release it
	backing []byte
}

// Size returns the amount of bytes in the region.
func (r *Region) Size() uint64 {
	return uint64(len(r.Data))
}

// End returns the first address after the region.
func (r *Region) End() uint64 {
	return r.Base + r.Size()
}

// Contains returns true if addr is part of the region.
func (r *Region) Contains(addr uint64) bool {
	return addr >= r.Base && addr-r.Base < r.Size()
}

// AllocateEvent is emitted by Allocate with the requested range.
type AllocateEvent struct {
	Addr uint64
	Size uint64
}

// ReadEvent is emitted after every instrumented read.
type ReadEvent struct {
	Addr  uint64
	Value uint64
	// Width of the access in bytes
	Width int
}

// WriteEvent is emitted after every instrumented write, Old is the value that was overwritten.
type WriteEvent struct {
	Addr  uint64
	Value uint64
	Old   uint64
	Width int
}

// AddressSpace is a set of non-overlapping regions sorted by base address. Typed accesses fire events, raw
// accesses do not.
type AddressSpace struct {
	regions []*Region
	// most recently used region, instructions tend to hit the same region over and over again
	last *Region

	// Locations records named anchors like the start and end of the heap and stack
	Locations map[string]uint64

	OnAllocate event.Event[AllocateEvent]
	OnRead     event.Event[ReadEvent]
	OnWrite    event.Event[WriteEvent]
}

// New creates an empty address space.
func New() *AddressSpace {
	return &AddressSpace{
		Locations: make(map[string]uint64),
	}
}

// Allocate reserves [addr, addr+size). Ranges which overlap or touch existing regions are merged with them, bytes
// which were already allocated keep their value, new bytes are zero. A zero sized allocation only emits the event.
func (as *AddressSpace) Allocate(addr, size uint64) error {
	if size > 0 {
		end := addr + size
		if end <= addr {
			return fmt.Errorf("allocate 0x%016x+0x%x: %w", addr, size, ErrOverflow)
		}

		if err := as.mapRange(addr, end); err != nil {
			return fmt.Errorf("allocate 0x%016x+0x%x: %w", addr, size, err)
		}
	}

	return as.OnAllocate.Emit(AllocateEvent{Addr: addr, Size: size})
}

func (as *AddressSpace) mapRange(start, end uint64) error {
	// First region which overlaps or touches the new range
	i := sort.Search(len(as.regions), func(i int) bool {
		return as.regions[i].End() >= start
	})

	j := i
	for ; j < len(as.regions) && as.regions[j].Base <= end; j++ {
		if as.regions[j].Base < start {
			start = as.regions[j].Base
		}
		if as.regions[j].End() > end {
			end = as.regions[j].End()
		}
	}

	// Fully covered by one existing region
	if j == i+1 && as.regions[i].Base == start && as.regions[i].End() == end {
		return nil
	}

	if end-start > MaxRegionSize {
		return fmt.Errorf("region of 0x%x bytes exceeds maximum of 0x%x", end-start, uint64(MaxRegionSize))
	}

	backing, err := newBacking(end - start)
	if err != nil {
		return err
	}

	merged := &Region{
		Base:    start,
		Data:    backing[:end-start],
		backing: backing,
	}

	for _, old := range as.regions[i:j] {
		copy(merged.Data[old.Base-start:], old.Data)
		if err := freeBacking(old.backing); err != nil {
			return fmt.Errorf("release region 0x%016x: %w", old.Base, err)
		}
	}

	as.regions = slices.Replace(as.regions, i, j, merged)
	as.last = nil

	return nil
}

func (as *AddressSpace) region(addr uint64) *Region {
	if as.last != nil && as.last.Contains(addr) {
		return as.last
	}

	i := sort.Search(len(as.regions), func(i int) bool {
		return as.regions[i].End() > addr
	})
	if i < len(as.regions) && as.regions[i].Contains(addr) {
		as.last = as.regions[i]
		return as.last
	}

	return nil
}

// span returns the bytes of [addr, addr+width) if they are part of a single region.
func (as *AddressSpace) span(addr uint64, width int, write bool) ([]byte, error) {
	r := as.region(addr)
	if r == nil || addr+uint64(width) > r.End() || addr+uint64(width) < addr {
		return nil, &AccessError{Addr: addr, Width: width, Write: write}
	}

	off := addr - r.Base
	return r.Data[off : off+uint64(width)], nil
}

// Contains returns true if addr is backed by a region.
func (as *AddressSpace) Contains(addr uint64) bool {
	return as.region(addr) != nil
}

// Regions returns a copy of the region list, the data slices are shared.
func (as *AddressSpace) Regions() []Region {
	regions := make([]Region, len(as.regions))
	for i, r := range as.regions {
		regions[i] = Region{Base: r.Base, Data: r.Data}
	}
	return regions
}

// Raw returns the bytes from addr up to the end of its region, or nil if addr is not backed. It does not fire
// events. The returned slice is only valid until the next allocation.
func (as *AddressSpace) Raw(addr uint64) []byte {
	r := as.region(addr)
	if r == nil {
		return nil
	}

	return r.Data[addr-r.Base:]
}

// ReadBytes copies size bytes starting at addr without firing events.
func (as *AddressSpace) ReadBytes(addr, size uint64) ([]byte, error) {
	b, err := as.span(addr, int(size), false)
	if err != nil {
		return nil, err
	}

	return slices.Clone(b), nil
}

// WriteBytes copies b to addr without firing events.
func (as *AddressSpace) WriteBytes(addr uint64, b []byte) error {
	if len(b) == 0 {
		return nil
	}

	dst, err := as.span(addr, len(b), true)
	if err != nil {
		return err
	}

	copy(dst, b)
	return nil
}

func (as *AddressSpace) read(addr uint64, width int) (uint64, error) {
	b, err := as.span(addr, width, false)
	if err != nil {
		return 0, err
	}

	v := decode(b)
	if err := as.OnRead.Emit(ReadEvent{Addr: addr, Value: v, Width: width}); err != nil {
		return v, err
	}

	return v, nil
}

func (as *AddressSpace) write(addr, value uint64, width int) error {
	b, err := as.span(addr, width, true)
	if err != nil {
		return err
	}

	old := decode(b)
	encode(b, value)

	return as.OnWrite.Emit(WriteEvent{Addr: addr, Value: decode(b), Old: old, Width: width})
}

func decode(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func encode(b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

// Read8 reads a byte.
func (as *AddressSpace) Read8(addr uint64) (uint8, error) {
	v, err := as.read(addr, 1)
	return uint8(v), err
}

// Read16 reads a little endian half word.
func (as *AddressSpace) Read16(addr uint64) (uint16, error) {
	v, err := as.read(addr, 2)
	return uint16(v), err
}

// Read32 reads a little endian word.
func (as *AddressSpace) Read32(addr uint64) (uint32, error) {
	v, err := as.read(addr, 4)
	return uint32(v), err
}

// Read64 reads a little endian double word.
func (as *AddressSpace) Read64(addr uint64) (uint64, error) {
	return as.read(addr, 8)
}

// Read reads an access of width 1, 2, 4 or 8 bytes, zero extended.
func (as *AddressSpace) Read(addr uint64, width int) (uint64, error) {
	switch width {
	case 1, 2, 4, 8:
		return as.read(addr, width)
	}

	return 0, fmt.Errorf("invalid access width %d", width)
}

// Write8 writes a byte.
func (as *AddressSpace) Write8(addr uint64, v uint8) error {
	return as.write(addr, uint64(v), 1)
}

// Write16 writes a little endian half word.
func (as *AddressSpace) Write16(addr uint64, v uint16) error {
	return as.write(addr, uint64(v), 2)
}

// Write32 writes a little endian word.
func (as *AddressSpace) Write32(addr uint64, v uint32) error {
	return as.write(addr, uint64(v), 4)
}

// Write64 writes a little endian double word.
func (as *AddressSpace) Write64(addr uint64, v uint64) error {
	return as.write(addr, v, 8)
}

// Write writes the low width bytes of v, width must be 1, 2, 4 or 8.
func (as *AddressSpace) Write(addr, v uint64, width int) error {
	switch width {
	case 1, 2, 4, 8:
		return as.write(addr, v, width)
	}

	return fmt.Errorf("invalid access width %d", width)
}

// Close releases all regions.
func (as *AddressSpace) Close() error {
	var firstErr error
	for _, r := range as.regions {
		if err := freeBacking(r.backing); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release region 0x%016x: %w", r.Base, err)
		}
	}

	as.regions = nil
	as.last = nil

	return firstErr
}

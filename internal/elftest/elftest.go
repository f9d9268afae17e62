// Package elftest builds small RV64 ELF executables in memory for tests.
package elftest

import (
	"bytes"
	goelf "debug/elf"
	"encoding/binary"
)

// Segment is a PT_LOAD segment described by one PROGBITS section and, if BSS is nonzero, a NOBITS section
// directly after it.
type Segment struct {
	Name  string
	Vaddr uint64
	Data  []byte
	BSS   uint64
}

// Image describes an executable.
type Image struct {
	Entry    uint64
	Segments []Segment
	// NoSections omits the section header table
	NoSections bool
}

const (
	headerSize  = 64
	progSize    = 56
	sectionSize = 64
)

func align(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// Bytes encodes the image.
func (img Image) Bytes() []byte {
	offsets := make([]uint64, len(img.Segments))
	off := uint64(headerSize + progSize*len(img.Segments))
	for i, seg := range img.Segments {
		off = align(off, 16)
		offsets[i] = off
		off += uint64(len(seg.Data))
	}

	var (
		sections []goelf.Section64
		shstrtab = []byte{0}
	)
	name := func(s string) uint32 {
		idx := uint32(len(shstrtab))
		shstrtab = append(shstrtab, s...)
		shstrtab = append(shstrtab, 0)
		return idx
	}

	shstrtabOff := off
	if !img.NoSections {
		sections = append(sections, goelf.Section64{})
		for i, seg := range img.Segments {
			sections = append(sections, goelf.Section64{
				Name:      name(seg.Name),
				Type:      uint32(goelf.SHT_PROGBITS),
				Flags:     uint64(goelf.SHF_ALLOC | goelf.SHF_WRITE | goelf.SHF_EXECINSTR),
				Addr:      seg.Vaddr,
				Off:       offsets[i],
				Size:      uint64(len(seg.Data)),
				Addralign: 4,
			})

			if seg.BSS > 0 {
				sections = append(sections, goelf.Section64{
					Name:      name(".bss"),
					Type:      uint32(goelf.SHT_NOBITS),
					Flags:     uint64(goelf.SHF_ALLOC | goelf.SHF_WRITE),
					Addr:      seg.Vaddr + uint64(len(seg.Data)),
					Off:       offsets[i] + uint64(len(seg.Data)),
					Size:      seg.BSS,
					Addralign: 8,
				})
			}
		}

		strtabName := name(".shstrtab")
		sections = append(sections, goelf.Section64{
			Name:      strtabName,
			Type:      uint32(goelf.SHT_STRTAB),
			Off:       shstrtabOff,
			Size:      uint64(len(shstrtab)),
			Addralign: 1,
		})
		off += uint64(len(shstrtab))
	}

	shoff := align(off, 8)

	hdr := goelf.Header64{
		Type:      uint16(goelf.ET_EXEC),
		Machine:   uint16(goelf.EM_RISCV),
		Version:   uint32(goelf.EV_CURRENT),
		Entry:     img.Entry,
		Phoff:     headerSize,
		Ehsize:    headerSize,
		Phentsize: progSize,
		Phnum:     uint16(len(img.Segments)),
	}
	copy(hdr.Ident[:], goelf.ELFMAG)
	hdr.Ident[goelf.EI_CLASS] = byte(goelf.ELFCLASS64)
	hdr.Ident[goelf.EI_DATA] = byte(goelf.ELFDATA2LSB)
	hdr.Ident[goelf.EI_VERSION] = byte(goelf.EV_CURRENT)
	if len(sections) > 0 {
		hdr.Shoff = shoff
		hdr.Shentsize = sectionSize
		hdr.Shnum = uint16(len(sections))
		hdr.Shstrndx = uint16(len(sections) - 1)
	}

	var buf bytes.Buffer
	write := func(v interface{}) {
		// Writes to a bytes.Buffer do not fail
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	pad := func(to uint64) {
		for uint64(buf.Len()) < to {
			buf.WriteByte(0)
		}
	}

	write(hdr)
	for i, seg := range img.Segments {
		write(goelf.Prog64{
			Type:   uint32(goelf.PT_LOAD),
			Flags:  uint32(goelf.PF_R | goelf.PF_W | goelf.PF_X),
			Off:    offsets[i],
			Vaddr:  seg.Vaddr,
			Paddr:  seg.Vaddr,
			Filesz: uint64(len(seg.Data)),
			Memsz:  uint64(len(seg.Data)) + seg.BSS,
			Align:  16,
		})
	}
	for i, seg := range img.Segments {
		pad(offsets[i])
		buf.Write(seg.Data)
	}

	if len(sections) > 0 {
		pad(shstrtabOff)
		buf.Write(shstrtab)
		pad(shoff)
		for _, s := range sections {
			write(s)
		}
	}

	return buf.Bytes()
}

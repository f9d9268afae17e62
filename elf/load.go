package elf

import (
	goelf "debug/elf"
	"fmt"

	"github.com/zircon-rv/zircon/mem"
)

// BuildMemoryImage allocates every loadable segment in as and fills it with the sections it contains. Sections
// without SHF_ALLOC and thread local NOBITS sections are not part of the process image and are skipped. When the
// file has no section headers the file backed part of each segment is copied as a whole.
func (f *File) BuildMemoryImage(as *mem.AddressSpace) error {
	if f.state != StateParsed {
		return fmt.Errorf("build memory image: %w", ErrNotParsed)
	}

	for i, p := range f.progs {
		if goelf.ProgType(p.Type) != goelf.PT_LOAD || p.Memsz == 0 {
			continue
		}

		if err := as.Allocate(p.Vaddr, p.Memsz); err != nil {
			return fmt.Errorf("program header %d: %w", i, err)
		}

		if len(f.sections) == 0 {
			if err := f.copyRange(as, p.Vaddr, p.Off, p.Filesz); err != nil {
				return fmt.Errorf("program header %d: %w", i, err)
			}
			continue
		}

		for j, s := range f.sections {
			typ := goelf.SectionType(s.Type)
			flags := goelf.SectionFlag(s.Flags)
			if typ == goelf.SHT_NULL || flags&goelf.SHF_ALLOC == 0 {
				continue
			}

			if typ == goelf.SHT_NOBITS {
				if flags&goelf.SHF_TLS != 0 || s.Off < p.Off || s.Off > p.Off+p.Filesz {
					continue
				}
				// A NOBITS section which starts where the file part of this segment ends may belong to another
				if s.Size == 0 || s.Addr < p.Vaddr || s.Addr >= p.Vaddr+p.Memsz {
					continue
				}
				if !inSegment(p, s) {
					return invalid("section %d at 0x%x+0x%x is outside of program header %d", j, s.Addr, s.Size, i)
				}

				zero := as.Raw(s.Addr)[:s.Size]
				for k := range zero {
					zero[k] = 0
				}
				continue
			}

			if s.Size == 0 || s.Off < p.Off || s.Off+s.Size > p.Off+p.Filesz {
				continue
			}
			if !inSegment(p, s) {
				return invalid("section %d at 0x%x+0x%x is outside of program header %d", j, s.Addr, s.Size, i)
			}

			if err := f.copyRange(as, s.Addr, s.Off, s.Size); err != nil {
				return fmt.Errorf("section %d: %w", j, err)
			}
		}
	}

	return nil
}

// inSegment returns true if the memory of s lies within the memory of p. Both ranges were checked for overflow while
// parsing.
func inSegment(p goelf.Prog64, s goelf.Section64) bool {
	return s.Addr >= p.Vaddr && s.Addr+s.Size <= p.Vaddr+p.Memsz
}

func (f *File) copyRange(as *mem.AddressSpace, addr, off, size uint64) error {
	if size == 0 {
		return nil
	}

	b := make([]byte, size)
	if n, err := f.r.ReadAt(b, int64(off)); n < len(b) {
		return fmt.Errorf("read 0x%x bytes at 0x%x: %w", size, off, noEOF(err))
	}

	return as.WriteBytes(addr, b)
}

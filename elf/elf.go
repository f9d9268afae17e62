// Package elf parses RV64 ELF executables and loads their contents into an address space.
package elf

import (
	"bytes"
	goelf "debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/zircon-rv/zircon/internal/cstr"
)

var (
	// ErrInvalid is wrapped by all structural validation errors
	ErrInvalid = errors.New("invalid ELF file")
	// ErrNotParsed is returned when a file is used before it was parsed successfully
	ErrNotParsed = errors.New("ELF file not parsed")
)

var (
	header64Size  = binary.Size(goelf.Header64{})
	prog64Size    = binary.Size(goelf.Prog64{})
	section64Size = binary.Size(goelf.Section64{})
)

// State is the progress of parsing a file, a file only moves forward or to StateFailed.
type State int

const (
	StateUnparsed State = iota
	StateHeaderParsed
	StateProgramHeadersParsed
	StateSectionHeadersParsed
	StateParsed
	StateFailed
)

var stateToString = map[State]string{
	StateUnparsed:             "unparsed",
	StateHeaderParsed:         "header parsed",
	StateProgramHeadersParsed: "program headers parsed",
	StateSectionHeadersParsed: "section headers parsed",
	StateParsed:               "parsed",
	StateFailed:               "failed",
}

func (s State) String() string {
	if str, ok := stateToString[s]; ok {
		return str
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// File is an ELF executable read from an io.ReaderAt.
type File struct {
	r     io.ReaderAt
	state State

	Header   goelf.Header64
	progs    []goelf.Prog64
	sections []goelf.Section64

	shstrtab []byte
}

// New creates an unparsed file.
func New(r io.ReaderAt) *File {
	return &File{r: r}
}

// Open parses the ELF file in r.
func Open(r io.ReaderAt) (*File, error) {
	f := New(r)
	if err := f.Parse(); err != nil {
		return nil, err
	}

	return f, nil
}

// State returns how far parsing got.
func (f *File) State() State {
	return f.state
}

// Parse reads and validates the file header, program headers and section headers in that order. The first
// failure moves the file to StateFailed.
func (f *File) Parse() error {
	if f.state != StateUnparsed {
		return fmt.Errorf("parse: file is in state '%s'", f.state)
	}

	steps := []struct {
		next State
		fn   func() error
	}{
		{next: StateHeaderParsed, fn: f.parseHeader},
		{next: StateProgramHeadersParsed, fn: f.parseProgramHeaders},
		{next: StateSectionHeadersParsed, fn: f.parseSectionHeaders},
		{next: StateParsed, fn: f.parseNames},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			f.state = StateFailed
			return err
		}
		f.state = step.next
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// noEOF turns the error of a short read into io.ErrUnexpectedEOF.
func noEOF(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (f *File) readStruct(off uint64, v interface{}) error {
	b := make([]byte, binary.Size(v))
	if n, err := f.r.ReadAt(b, int64(off)); n < len(b) {
		return noEOF(err)
	}

	return binary.Read(bytes.NewReader(b), binary.LittleEndian, v)
}

func (f *File) parseHeader() error {
	if err := f.readStruct(0, &f.Header); err != nil {
		return fmt.Errorf("read file header: %w", err)
	}

	ident := f.Header.Ident
	if string(ident[:len(goelf.ELFMAG)]) != goelf.ELFMAG {
		return invalid("bad magic % x", ident[:4])
	}
	if class := goelf.Class(ident[goelf.EI_CLASS]); class != goelf.ELFCLASS64 {
		return invalid("class %s is not supported", class)
	}
	if data := goelf.Data(ident[goelf.EI_DATA]); data != goelf.ELFDATA2LSB {
		return invalid("data encoding %s is not supported", data)
	}
	if v := goelf.Version(ident[goelf.EI_VERSION]); v != goelf.EV_CURRENT {
		return invalid("identification version %s", v)
	}
	if m := goelf.Machine(f.Header.Machine); m != goelf.EM_RISCV {
		return invalid("machine %s is not RISC-V", m)
	}
	if v := goelf.Version(f.Header.Version); v != goelf.EV_CURRENT {
		return invalid("version %s", v)
	}

	if f.Header.Phoff != 0 {
		if int(f.Header.Phentsize) != prog64Size {
			return invalid("program header entry size %d, expected %d", f.Header.Phentsize, prog64Size)
		}
	} else if f.Header.Phnum != 0 {
		return invalid("%d program headers without program header offset", f.Header.Phnum)
	}

	if f.Header.Shoff != 0 {
		if int(f.Header.Shentsize) != section64Size {
			return invalid("section header entry size %d, expected %d", f.Header.Shentsize, section64Size)
		}
	} else if f.Header.Shnum != 0 {
		return invalid("%d section headers without section header offset", f.Header.Shnum)
	}

	return nil
}

func (f *File) parseProgramHeaders() error {
	progs := make([]goelf.Prog64, f.Header.Phnum)
	for i := range progs {
		off := f.Header.Phoff + uint64(i)*uint64(f.Header.Phentsize)
		if err := f.readStruct(off, &progs[i]); err != nil {
			return fmt.Errorf("read program header %d: %w", i, err)
		}

		p := progs[i]
		if goelf.ProgType(p.Type) != goelf.PT_LOAD {
			continue
		}
		if p.Filesz > p.Memsz {
			return invalid("program header %d: file size 0x%x exceeds memory size 0x%x", i, p.Filesz, p.Memsz)
		}
		if p.Vaddr+p.Memsz < p.Vaddr {
			return invalid("program header %d: memory range 0x%x+0x%x overflows", i, p.Vaddr, p.Memsz)
		}
		if err := f.inFile(p.Off, p.Filesz); err != nil {
			return fmt.Errorf("program header %d: %w", i, err)
		}
	}

	f.progs = progs
	return nil
}

func (f *File) parseSectionHeaders() error {
	sections := make([]goelf.Section64, f.Header.Shnum)
	for i := range sections {
		off := f.Header.Shoff + uint64(i)*uint64(f.Header.Shentsize)
		if err := f.readStruct(off, &sections[i]); err != nil {
			return fmt.Errorf("read section header %d: %w", i, err)
		}

		s := sections[i]
		typ := goelf.SectionType(s.Type)
		if typ == goelf.SHT_NULL {
			continue
		}
		if s.Addr+s.Size < s.Addr {
			return invalid("section %d: address range 0x%x+0x%x overflows", i, s.Addr, s.Size)
		}
		if typ == goelf.SHT_NOBITS {
			continue
		}
		if err := f.inFile(s.Off, s.Size); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
	}

	f.sections = sections
	return nil
}

func (f *File) parseNames() error {
	idx := int(f.Header.Shstrndx)
	if len(f.sections) == 0 || idx == int(goelf.SHN_UNDEF) {
		return nil
	}
	if idx >= len(f.sections) {
		return invalid("section name table index %d out of range", idx)
	}

	s := f.sections[idx]
	if goelf.SectionType(s.Type) != goelf.SHT_STRTAB {
		return invalid("section name table has type %s", goelf.SectionType(s.Type))
	}

	f.shstrtab = make([]byte, s.Size)
	if n, err := f.r.ReadAt(f.shstrtab, int64(s.Off)); n < len(f.shstrtab) {
		return fmt.Errorf("read section name table: %w", noEOF(err))
	}

	return nil
}

// inFile checks that [off, off+size) lies within the file.
func (f *File) inFile(off, size uint64) error {
	if off+size < off || off+size > math.MaxInt64 {
		return invalid("range 0x%x+0x%x overflows", off, size)
	}
	if size == 0 {
		return nil
	}

	var b [1]byte
	if n, _ := f.r.ReadAt(b[:], int64(off+size-1)); n < 1 {
		return invalid("range 0x%x+0x%x extends past the end of the file", off, size)
	}

	return nil
}

// Entry returns the address of the first instruction.
func (f *File) Entry() uint64 {
	return f.Header.Entry
}

// Programs returns the program headers.
func (f *File) Programs() []goelf.Prog64 {
	return f.progs
}

// Sections returns the section headers.
func (f *File) Sections() []goelf.Section64 {
	return f.sections
}

// SectionName returns the name of the section at index i.
func (f *File) SectionName(i int) (string, error) {
	if i < 0 || i >= len(f.sections) {
		return "", fmt.Errorf("section index %d out of range", i)
	}

	off := uint64(f.sections[i].Name)
	if off >= uint64(len(f.shstrtab)) {
		if off == 0 {
			return "", nil
		}
		return "", invalid("section %d name offset 0x%x outside of name table", i, off)
	}

	name, ok := cstr.Read(f.shstrtab[off:])
	if !ok {
		return "", invalid("section %d name is not terminated", i)
	}

	return name, nil
}

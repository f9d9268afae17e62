// Package trace writes a textual log of what the emulator does: executed instructions, register accesses and
// memory accesses.
package trace

import (
	"fmt"
	"io"

	"github.com/zircon-rv/zircon/emulator"
	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/mem"
)

// Palette holds the escape sequences used to highlight values. The zero value disables colour.
type Palette struct {
	Addr  string
	Hex   string
	New   string
	Old   string
	Reset string
}

// Colors highlights addresses in light cyan, instruction words in cyan, new values in green and old values in red.
var Colors = Palette{
	Addr:  "\x1b[96;2m",
	Hex:   "\x1b[36;2m",
	New:   "\x1b[32;2m",
	Old:   "\x1b[31;2m",
	Reset: "\x1b[0m",
}

func (p Palette) paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + p.Reset
}

func hex(v uint64, width int) string {
	return fmt.Sprintf("0x%0*x", width*2, v)
}

// Tracer writes one line per traced event.
type Tracer struct {
	w      io.Writer
	colors Palette
}

// NewTracer creates a tracer writing to w, with colour if color is true.
func NewTracer(w io.Writer, color bool) *Tracer {
	t := &Tracer{w: w}
	if color {
		t.colors = Colors
	}
	return t
}

// Instructions traces every instruction before it executes:
//
//	PC[0x0000000000010078] = 0x00100513; addi a0, zero, 1
func (t *Tracer) Instructions(h *emulator.Hart) {
	h.OnBeforeExecute.AddListener(func(h *emulator.Hart) error {
		c := t.colors

		// A failing fetch is reported by the hart itself
		word, err := h.Fetch()
		if err != nil {
			return nil
		}

		_, err = fmt.Fprintf(t.w, "PC[%s] = %s; %s\n",
			c.paint(c.Addr, hex(h.PC(), 8)),
			c.paint(c.Hex, hex(uint64(word), 4)),
			h.Disassemble(),
		)
		return err
	})
}

// Registers traces register reads and writes of all classes:
//
//	RD GPR[10] = 0x0000000000000001
//	WR GPR[10] = 0x0000000000000002; OLD VALUE = 0x0000000000000001
func (t *Tracer) Registers(rf *isa.RegisterFile) {
	rf.OnRead(func(e isa.RegisterRead) error {
		c := t.colors
		_, err := fmt.Fprintf(t.w, "RD %s[%s] = %s\n",
			e.Class.Name(),
			c.paint(c.Addr, fmt.Sprint(e.Index)),
			c.paint(c.New, hex(e.Value, 8)),
		)
		return err
	})

	rf.OnWrite(func(e isa.RegisterWrite) error {
		c := t.colors
		_, err := fmt.Fprintf(t.w, "WR %s[%s] = %s; OLD VALUE = %s\n",
			e.Class.Name(),
			c.paint(c.Addr, fmt.Sprint(e.Index)),
			c.paint(c.New, hex(e.Value, 8)),
			c.paint(c.Old, hex(e.Old, 8)),
		)
		return err
	})
}

// Memory traces allocations and instrumented memory accesses, values are printed with the width of the access:
//
//	ALLOCATE[0x0000000100000000 - 0x0000000100000010]
//	RD MEM[0x0000000100000000] = 0x2a
//	WR MEM[0x0000000100000000] = 0x0000002b; OLD VALUE = 0x0000002a
func (t *Tracer) Memory(as *mem.AddressSpace) {
	as.OnAllocate.AddListener(func(e mem.AllocateEvent) error {
		c := t.colors
		_, err := fmt.Fprintf(t.w, "ALLOCATE[%s - %s]\n",
			c.paint(c.Addr, hex(e.Addr, 8)),
			c.paint(c.Addr, hex(e.Addr+e.Size, 8)),
		)
		return err
	})

	as.OnRead.AddListener(func(e mem.ReadEvent) error {
		c := t.colors
		_, err := fmt.Fprintf(t.w, "RD MEM[%s] = %s\n",
			c.paint(c.Addr, hex(e.Addr, 8)),
			c.paint(c.New, hex(e.Value, e.Width)),
		)
		return err
	})

	as.OnWrite.AddListener(func(e mem.WriteEvent) error {
		c := t.colors
		_, err := fmt.Fprintf(t.w, "WR MEM[%s] = %s; OLD VALUE = %s\n",
			c.paint(c.Addr, hex(e.Addr, 8)),
			c.paint(c.New, hex(e.Value, e.Width)),
			c.paint(c.Old, hex(e.Old, e.Width)),
		)
		return err
	})
}

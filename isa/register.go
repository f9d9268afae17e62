// Package isa contains the architectural register state of a RISC-V hart.
package isa

import (
	"fmt"
	"io"
	"strconv"

	"github.com/zircon-rv/zircon/event"
)

// RegisterRead is emitted for every instrumented register read.
type RegisterRead struct {
	Class *RegisterClass
	Index uint
	Value uint64
}

// RegisterWrite is emitted for every instrumented register write. For a hard-wired zero register both Value and
// Old are zero.
type RegisterWrite struct {
	Class *RegisterClass
	Index uint
	Value uint64
	Old   uint64
}

// RegisterClass is a bank of 64-bit registers of the same kind.
type RegisterClass struct {
	name   string
	prefix string
	names  []string
	values []uint64

	// index 0 always reads as zero and ignores writes
	zero bool
	// Dump skips registers which hold zero
	sparse bool

	OnRead  event.Event[RegisterRead]
	OnWrite event.Event[RegisterWrite]
}

// Name returns the name of the class, like "GPR".
func (c *RegisterClass) Name() string {
	return c.name
}

// Len returns the amount of registers in the class.
func (c *RegisterClass) Len() int {
	return len(c.values)
}

// RegisterName returns the preferred name of a register, the ABI name if the class has them.
func (c *RegisterClass) RegisterName(idx uint) string {
	c.check(idx)
	if c.names != nil {
		return c.names[idx]
	}

	return c.prefix + strconv.Itoa(int(idx))
}

func (c *RegisterClass) check(idx uint) {
	if idx >= uint(len(c.values)) {
		panic(fmt.Sprintf("%s index %d out of range [0, %d)", c.name, idx, len(c.values)))
	}
}

// Read returns the value of a register and emits a RegisterRead.
func (c *RegisterClass) Read(idx uint) (uint64, error) {
	v := c.Value(idx)
	if err := c.OnRead.Emit(RegisterRead{Class: c, Index: idx, Value: v}); err != nil {
		return v, err
	}

	return v, nil
}

// Write sets the value of a register and emits a RegisterWrite.
func (c *RegisterClass) Write(idx uint, v uint64) error {
	old := c.Value(idx)
	c.SetValue(idx, v)

	return c.OnWrite.Emit(RegisterWrite{Class: c, Index: idx, Value: c.values[idx], Old: old})
}

// Value returns the value of a register without emitting events.
func (c *RegisterClass) Value(idx uint) uint64 {
	c.check(idx)
	return c.values[idx]
}

// SetValue sets a register without emitting events.
func (c *RegisterClass) SetValue(idx uint, v uint64) {
	c.check(idx)
	if c.zero && idx == 0 {
		return
	}

	c.values[idx] = v
}

// Dump writes the registers of the class in two columns.
func (c *RegisterClass) Dump(w io.Writer) error {
	var cells []string
	for i := range c.values {
		if c.sparse && c.values[i] == 0 {
			continue
		}
		cells = append(cells, fmt.Sprintf("%s 0x%016x", c.RegisterName(uint(i)), c.values[i]))
	}

	if _, err := fmt.Fprintln(w, c.name); err != nil {
		return err
	}

	half := (len(cells) + 1) / 2
	for i := 0; i < half; i++ {
		line := fmt.Sprintf("%32s", cells[i])
		if half+i < len(cells) {
			line += fmt.Sprintf("%32s", cells[half+i])
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// RegisterFile holds all register classes of a hart.
type RegisterFile struct {
	GPR *RegisterClass
	CSR *RegisterClass
}

// NewRegisterFile creates a register file with all registers set to zero.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{
		GPR: NewGPR(),
		CSR: NewCSR(),
	}
}

// Classes returns all register classes.
func (f *RegisterFile) Classes() []*RegisterClass {
	return []*RegisterClass{f.GPR, f.CSR}
}

// Class returns a class by name, or nil if no class with the name exists.
func (f *RegisterFile) Class(name string) *RegisterClass {
	for _, c := range f.Classes() {
		if c.name == name {
			return c
		}
	}

	return nil
}

// OnRead adds l to the read listeners of every class.
func (f *RegisterFile) OnRead(l event.Listener[RegisterRead]) {
	for _, c := range f.Classes() {
		c.OnRead.AddListener(l)
	}
}

// OnWrite adds l to the write listeners of every class.
func (f *RegisterFile) OnWrite(l event.Listener[RegisterWrite]) {
	for _, c := range f.Classes() {
		c.OnWrite.AddListener(l)
	}
}

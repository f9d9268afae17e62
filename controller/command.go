// Package controller implements the control language, small trigger rules which run actions when an emulator hook
// fires and all conditions of the rule hold.
package controller

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/zircon-rv/zircon/event"
	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/mem"
)

// Context is the state commands are evaluated against, it is implemented by the hart.
type Context interface {
	PC() uint64
	Registers() *isa.RegisterFile
	Memory() *mem.AddressSpace
	Stop()
	// Disassemble returns the disassembly of the instruction at the program counter
	Disassemble() string
}

// Command runs its actions in order when its event fires and all of its conditions hold.
type Command struct {
	Event      event.Type
	Conditions []Condition
	Actions    []Action
}

func (c *Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Event.String())
	for _, cond := range c.Conditions {
		sb.WriteString(", ")
		sb.WriteString(cond.String())
	}
	sb.WriteString(" -> ")
	for i, a := range c.Actions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Run evaluates the conditions against ctx and executes the actions if they all hold. Output of actions is written
// to w.
func (c *Command) Run(ctx Context, w io.Writer) error {
	for _, cond := range c.Conditions {
		ok, err := cond.Holds(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", cond, err)
		}
		if !ok {
			return nil
		}
	}

	for _, a := range c.Actions {
		if err := a.Run(ctx, w); err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
	}

	return nil
}

// Operand is a value which can be observed in a Context: PC, Register or Memory.
type Operand interface {
	fmt.Stringer
	Value(ctx Context) (uint64, error)
	operand()
}

var (
	_ Operand = PC{}
	_ Operand = Register{}
	_ Operand = Memory{}
)

// PC is the program counter.
type PC struct{}

func (PC) operand() {}

func (PC) String() string {
	return "pc"
}

func (PC) Value(ctx Context) (uint64, error) {
	return ctx.PC(), nil
}

// Register is a single register of a register class.
type Register struct {
	Class string
	Index uint
}

func (Register) operand() {}

func (r Register) String() string {
	return fmt.Sprintf("%s[%d]", r.Class, r.Index)
}

func (r Register) class(ctx Context) (*isa.RegisterClass, error) {
	c := ctx.Registers().Class(r.Class)
	if c == nil {
		return nil, fmt.Errorf("unknown register class '%s'", r.Class)
	}
	if r.Index >= uint(c.Len()) {
		return nil, fmt.Errorf("register index %d out of range, %s has %d registers", r.Index, r.Class, c.Len())
	}
	return c, nil
}

// Value reads the register without firing register events.
func (r Register) Value(ctx Context) (uint64, error) {
	c, err := r.class(ctx)
	if err != nil {
		return 0, err
	}

	return c.Value(r.Index), nil
}

// Memory is the doubleword at an address.
type Memory struct {
	Addr uint64
}

func (Memory) operand() {}

func (m Memory) String() string {
	return fmt.Sprintf("mem[0x%x]", m.Addr)
}

// Value reads the doubleword without firing memory events.
func (m Memory) Value(ctx Context) (uint64, error) {
	b, err := ctx.Memory().ReadBytes(m.Addr, 8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// Condition is a predicate over a Context. Equals is the only condition.
type Condition interface {
	fmt.Stringer
	Holds(ctx Context) (bool, error)
	condition()
}

var _ Condition = (*Equals)(nil)

// Equals holds if the operand has the given value.
type Equals struct {
	Operand Operand
	Value   uint64
}

func (*Equals) condition() {}

func (e *Equals) String() string {
	return fmt.Sprintf("%s == 0x%x", e.Operand, e.Value)
}

func (e *Equals) Holds(ctx Context) (bool, error) {
	v, err := e.Operand.Value(ctx)
	if err != nil {
		return false, err
	}

	return v == e.Value, nil
}

// Action is something a command does: Stop, DumpRegisters, DumpPC, Print or Disassemble.
type Action interface {
	fmt.Stringer
	Run(ctx Context, w io.Writer) error
	action()
}

var (
	_ Action = Stop{}
	_ Action = DumpRegisters{}
	_ Action = DumpPC{}
	_ Action = Print{}
	_ Action = Disassemble{}
)

// Stop halts the hart after the current instruction.
type Stop struct{}

func (Stop) action() {}

func (Stop) String() string {
	return "stop"
}

func (Stop) Run(ctx Context, w io.Writer) error {
	ctx.Stop()
	return nil
}

// DumpRegisters writes all registers of a class.
type DumpRegisters struct {
	Class string
}

func (DumpRegisters) action() {}

func (d DumpRegisters) String() string {
	return "dump " + d.Class
}

func (d DumpRegisters) Run(ctx Context, w io.Writer) error {
	c := ctx.Registers().Class(d.Class)
	if c == nil {
		return fmt.Errorf("unknown register class '%s'", d.Class)
	}

	return c.Dump(w)
}

// DumpPC writes the program counter.
type DumpPC struct{}

func (DumpPC) action() {}

func (DumpPC) String() string {
	return "dump pc"
}

func (DumpPC) Run(ctx Context, w io.Writer) error {
	_, err := fmt.Fprintf(w, "PC = 0x%016x\n", ctx.PC())
	return err
}

// Print writes the value of an operand.
type Print struct {
	Operand Operand
}

func (Print) action() {}

func (p Print) String() string {
	return "print " + p.Operand.String()
}

func (p Print) Run(ctx Context, w io.Writer) error {
	v, err := p.Operand.Value(ctx)
	if err != nil {
		return err
	}

	switch op := p.Operand.(type) {
	case PC:
		_, err = fmt.Fprintf(w, "PC = 0x%016x\n", v)
	case Register:
		_, err = fmt.Fprintf(w, "%s[%d] = 0x%016x\n", op.Class, op.Index, v)
	case Memory:
		_, err = fmt.Fprintf(w, "MEM[0x%016x] = 0x%016x\n", op.Addr, v)
	}
	return err
}

// Disassemble writes the instruction at the program counter.
type Disassemble struct{}

func (Disassemble) action() {}

func (Disassemble) String() string {
	return "disasm"
}

func (Disassemble) Run(ctx Context, w io.Writer) error {
	_, err := fmt.Fprintf(w, "0x%016x: %s\n", ctx.PC(), ctx.Disassemble())
	return err
}

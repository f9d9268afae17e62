package emulator

import (
	"fmt"
	"time"

	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/riscv"
	"github.com/zircon-rv/zircon/sysbridge"
)

var _ Instruction = (*Ecall)(nil)

type Ecall struct {
	riscv.Ecall
}

func (i *Ecall) Execute(h *Hart) error {
	if err := h.bridge.Dispatch(h); err != nil {
		return err
	}

	h.next()
	return nil
}

// The hart satisfies the state system call handlers need
var _ sysbridge.State = (*Hart)(nil)

var _ Instruction = (*Ebreak)(nil)

type Ebreak struct {
	riscv.Ebreak
}

func (i *Ebreak) Execute(h *Hart) error {
	return ErrBreakpoint
}

var _ Instruction = (*Fence)(nil)

// Fence is a no-op, a single hart always observes its own memory accesses in order.
type Fence struct {
	riscv.Fence
}

func (i *Fence) Execute(h *Hart) error {
	h.next()
	return nil
}

var _ Instruction = (*CSROp)(nil)

type CSROp struct {
	riscv.CSROp
}

func (i *CSROp) Execute(h *Hart) error {
	csr := uint(i.CSR)

	var src uint64
	if i.Immediate() {
		src = uint64(i.Rs1)
	} else {
		v, err := h.reg(i.Rs1)
		if err != nil {
			return err
		}
		src = v
	}

	// csrrs and csrrc with a zero source only read
	write := true
	switch i.Op {
	case riscv.OpCsrrs, riscv.OpCsrrc, riscv.OpCsrrsi, riscv.OpCsrrci:
		write = i.Rs1 != riscv.Zero
	}

	// The top two bits of a CSR number being set marks it read-only
	if write && csr>>10 == 0b11 {
		return fmt.Errorf("%w: write to read-only csr 0x%03x", riscv.ErrIllegalInstruction, csr)
	}

	if csr == isa.CSRTime {
		h.regs.CSR.SetValue(csr, uint64(time.Now().UnixNano()))
	}

	// csrrw and csrrwi into x0 don't read the csr
	var old uint64
	if i.Rd != riscv.Zero || (i.Op != riscv.OpCsrrw && i.Op != riscv.OpCsrrwi) {
		v, err := h.regs.CSR.Read(csr)
		if err != nil {
			return err
		}
		old = v
	}

	if write {
		v := src
		switch i.Op {
		case riscv.OpCsrrs, riscv.OpCsrrsi:
			v = old | src
		case riscv.OpCsrrc, riscv.OpCsrrci:
			v = old &^ src
		}

		if err := h.regs.CSR.Write(csr, v); err != nil {
			return err
		}
	}

	if err := h.setReg(i.Rd, old); err != nil {
		return err
	}

	h.next()
	return nil
}

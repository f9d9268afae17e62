package emulator

import (
	"fmt"

	"github.com/zircon-rv/zircon/riscv"
)

var _ Instruction = (*Branch)(nil)

type Branch struct {
	riscv.Branch
}

func (i *Branch) Execute(h *Hart) error {
	a, err := h.reg(i.Rs1)
	if err != nil {
		return err
	}
	b, err := h.reg(i.Rs2)
	if err != nil {
		return err
	}

	var taken bool
	switch i.Op {
	case riscv.OpBeq:
		taken = a == b
	case riscv.OpBne:
		taken = a != b
	case riscv.OpBlt:
		taken = int64(a) < int64(b)
	case riscv.OpBge:
		taken = int64(a) >= int64(b)
	case riscv.OpBltu:
		taken = a < b
	case riscv.OpBgeu:
		taken = a >= b
	default:
		return fmt.Errorf("unsupported branch '%s'", i.Op)
	}

	if taken {
		h.pc.Set(h.pc.Get() + uint64(i.Offset))
		return nil
	}

	h.next()
	return nil
}

var _ Instruction = (*JAL)(nil)

type JAL struct {
	riscv.JAL
}

func (i *JAL) Execute(h *Hart) error {
	pc := h.pc.Get()
	if err := h.setReg(i.Rd, pc+4); err != nil {
		return err
	}

	h.pc.Set(pc + uint64(i.Offset))
	return nil
}

var _ Instruction = (*JALR)(nil)

type JALR struct {
	riscv.JALR
}

func (i *JALR) Execute(h *Hart) error {
	// Read the base before writing the link register, they may be the same register
	base, err := h.reg(i.Rs1)
	if err != nil {
		return err
	}

	pc := h.pc.Get()
	if err := h.setReg(i.Rd, pc+4); err != nil {
		return err
	}

	h.pc.Set((base + uint64(i.Offset)) &^ 1)
	return nil
}

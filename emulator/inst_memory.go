package emulator

import (
	"github.com/zircon-rv/zircon/riscv"
)

var _ Instruction = (*Load)(nil)

type Load struct {
	riscv.Load
}

func (i *Load) Execute(h *Hart) error {
	base, err := h.reg(i.Rs1)
	if err != nil {
		return err
	}

	v, err := h.mem.Read(base+uint64(i.Offset), i.Width())
	if err != nil {
		return err
	}

	if i.Signed() {
		switch i.Width() {
		case 1:
			v = uint64(int64(int8(v)))
		case 2:
			v = uint64(int64(int16(v)))
		case 4:
			v = sext32(uint32(v))
		}
	}

	if err := h.setReg(i.Rd, v); err != nil {
		return err
	}

	h.next()
	return nil
}

var _ Instruction = (*Store)(nil)

type Store struct {
	riscv.Store
}

func (i *Store) Execute(h *Hart) error {
	base, err := h.reg(i.Rs1)
	if err != nil {
		return err
	}
	v, err := h.reg(i.Rs2)
	if err != nil {
		return err
	}

	addr := base + uint64(i.Offset)
	if err := h.mem.Write(addr, v, i.Width()); err != nil {
		return err
	}
	h.invalidateReservation(addr, i.Width())

	h.next()
	return nil
}

package emulator

import (
	"fmt"

	"github.com/zircon-rv/zircon/riscv"
)

var _ Instruction = (*AtomicOp)(nil)

// AtomicOp executes the A extension. With a single hart every access is atomic, a reservation only has to be
// broken by stores to the reserved address.
type AtomicOp struct {
	riscv.AtomicOp
}

func (i *AtomicOp) Execute(h *Hart) error {
	addr, err := h.reg(i.Rs1)
	if err != nil {
		return err
	}
	if addr%uint64(i.Width) != 0 {
		return fmt.Errorf("%w: %s at 0x%016x", ErrMisaligned, i.Mnemonic(), addr)
	}

	switch i.Op {
	case riscv.OpLr:
		v, err := h.mem.Read(addr, i.Width)
		if err != nil {
			return err
		}

		h.reservation.addr = addr
		h.reservation.valid = true

		if err := h.setReg(i.Rd, i.extend(v)); err != nil {
			return err
		}

	case riscv.OpSc:
		src, err := h.reg(i.Rs2)
		if err != nil {
			return err
		}

		result := uint64(1)
		if h.reservation.valid && h.reservation.addr == addr {
			if err := h.mem.Write(addr, src, i.Width); err != nil {
				return err
			}
			result = 0
		}
		h.reservation.valid = false

		if err := h.setReg(i.Rd, result); err != nil {
			return err
		}

	default:
		src, err := h.reg(i.Rs2)
		if err != nil {
			return err
		}

		old, err := h.mem.Read(addr, i.Width)
		if err != nil {
			return err
		}

		v, err := i.apply(old, src)
		if err != nil {
			return err
		}

		if err := h.mem.Write(addr, v, i.Width); err != nil {
			return err
		}
		h.invalidateReservation(addr, i.Width)

		if err := h.setReg(i.Rd, i.extend(old)); err != nil {
			return err
		}
	}

	h.next()
	return nil
}

// extend sign extends word sized values.
func (i *AtomicOp) extend(v uint64) uint64 {
	if i.Width == 4 {
		return sext32(uint32(v))
	}
	return v
}

func (i *AtomicOp) apply(old, src uint64) (uint64, error) {
	a, b := old, src
	if i.Width == 4 {
		a, b = uint64(uint32(old)), uint64(uint32(src))
	}

	switch i.Op {
	case riscv.OpAmoswap:
		return src, nil
	case riscv.OpAmoadd:
		return old + src, nil
	case riscv.OpAmoxor:
		return old ^ src, nil
	case riscv.OpAmoand:
		return old & src, nil
	case riscv.OpAmoor:
		return old | src, nil
	case riscv.OpAmomin:
		if int64(i.extend(old)) < int64(i.extend(src)) {
			return old, nil
		}
		return src, nil
	case riscv.OpAmomax:
		if int64(i.extend(old)) > int64(i.extend(src)) {
			return old, nil
		}
		return src, nil
	case riscv.OpAmominu:
		if a < b {
			return old, nil
		}
		return src, nil
	case riscv.OpAmomaxu:
		if a > b {
			return old, nil
		}
		return src, nil
	}

	return 0, fmt.Errorf("unsupported atomic operation '%s'", i.Op)
}

// invalidateReservation breaks the reservation of lr if a write of width bytes at addr overlaps it.
func (h *Hart) invalidateReservation(addr uint64, width int) {
	r := h.reservation.addr
	if h.reservation.valid && addr < r+8 && r < addr+uint64(width) {
		h.reservation.valid = false
	}
}

package emulator

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/zircon-rv/zircon/riscv"
)

var _ Instruction = (*RegOp)(nil)

type RegOp struct {
	riscv.RegOp
}

func (i *RegOp) Execute(h *Hart) error {
	a, err := h.reg(i.Rs1)
	if err != nil {
		return err
	}
	b, err := h.reg(i.Rs2)
	if err != nil {
		return err
	}

	v, err := alu(i.Op, a, b)
	if err != nil {
		return err
	}

	if err := h.setReg(i.Rd, v); err != nil {
		return err
	}

	h.next()
	return nil
}

var _ Instruction = (*ImmOp)(nil)

type ImmOp struct {
	riscv.ImmOp
}

// The register-register operation each immediate operation performs
var immToRegOp = map[riscv.Op]riscv.Op{
	riscv.OpAddi:  riscv.OpAdd,
	riscv.OpSlti:  riscv.OpSlt,
	riscv.OpSltiu: riscv.OpSltu,
	riscv.OpXori:  riscv.OpXor,
	riscv.OpOri:   riscv.OpOr,
	riscv.OpAndi:  riscv.OpAnd,
	riscv.OpSlli:  riscv.OpSll,
	riscv.OpSrli:  riscv.OpSrl,
	riscv.OpSrai:  riscv.OpSra,
	riscv.OpAddiw: riscv.OpAddw,
	riscv.OpSlliw: riscv.OpSllw,
	riscv.OpSrliw: riscv.OpSrlw,
	riscv.OpSraiw: riscv.OpSraw,
}

func (i *ImmOp) Execute(h *Hart) error {
	op, ok := immToRegOp[i.Op]
	if !ok {
		return fmt.Errorf("unsupported immediate operation '%s'", i.Op)
	}

	a, err := h.reg(i.Rs1)
	if err != nil {
		return err
	}

	v, err := alu(op, a, uint64(i.Imm))
	if err != nil {
		return err
	}

	if err := h.setReg(i.Rd, v); err != nil {
		return err
	}

	h.next()
	return nil
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// alu performs a register-register operation. Division by zero and signed overflow do not trap, they produce the
// results defined by the M extension.
func alu(op riscv.Op, a, b uint64) (uint64, error) {
	switch op {
	case riscv.OpAdd:
		return a + b, nil
	case riscv.OpSub:
		return a - b, nil
	case riscv.OpSll:
		return a << (b & 63), nil
	case riscv.OpSlt:
		return boolToUint(int64(a) < int64(b)), nil
	case riscv.OpSltu:
		return boolToUint(a < b), nil
	case riscv.OpXor:
		return a ^ b, nil
	case riscv.OpSrl:
		return a >> (b & 63), nil
	case riscv.OpSra:
		return uint64(int64(a) >> (b & 63)), nil
	case riscv.OpOr:
		return a | b, nil
	case riscv.OpAnd:
		return a & b, nil

	case riscv.OpMul:
		return a * b, nil
	case riscv.OpMulh:
		hi, _ := bits.Mul64(a, b)
		if int64(a) < 0 {
			hi -= b
		}
		if int64(b) < 0 {
			hi -= a
		}
		return hi, nil
	case riscv.OpMulhsu:
		hi, _ := bits.Mul64(a, b)
		if int64(a) < 0 {
			hi -= b
		}
		return hi, nil
	case riscv.OpMulhu:
		hi, _ := bits.Mul64(a, b)
		return hi, nil
	case riscv.OpDiv:
		switch {
		case b == 0:
			return math.MaxUint64, nil
		case int64(a) == math.MinInt64 && int64(b) == -1:
			return a, nil
		}
		return uint64(int64(a) / int64(b)), nil
	case riscv.OpDivu:
		if b == 0 {
			return math.MaxUint64, nil
		}
		return a / b, nil
	case riscv.OpRem:
		switch {
		case b == 0:
			return a, nil
		case int64(a) == math.MinInt64 && int64(b) == -1:
			return 0, nil
		}
		return uint64(int64(a) % int64(b)), nil
	case riscv.OpRemu:
		if b == 0 {
			return a, nil
		}
		return a % b, nil

	case riscv.OpAddw:
		return sext32(uint32(a + b)), nil
	case riscv.OpSubw:
		return sext32(uint32(a - b)), nil
	case riscv.OpSllw:
		return sext32(uint32(a) << (b & 31)), nil
	case riscv.OpSrlw:
		return sext32(uint32(a) >> (b & 31)), nil
	case riscv.OpSraw:
		return sext32(uint32(int32(a) >> (b & 31))), nil
	case riscv.OpMulw:
		return sext32(uint32(a) * uint32(b)), nil
	case riscv.OpDivw:
		x, y := int32(a), int32(b)
		switch {
		case y == 0:
			return math.MaxUint64, nil
		case x == math.MinInt32 && y == -1:
			return sext32(uint32(x)), nil
		}
		return sext32(uint32(x / y)), nil
	case riscv.OpDivuw:
		if uint32(b) == 0 {
			return math.MaxUint64, nil
		}
		return sext32(uint32(a) / uint32(b)), nil
	case riscv.OpRemw:
		x, y := int32(a), int32(b)
		switch {
		case y == 0:
			return sext32(uint32(x)), nil
		case x == math.MinInt32 && y == -1:
			return 0, nil
		}
		return sext32(uint32(x % y)), nil
	case riscv.OpRemuw:
		if uint32(b) == 0 {
			return sext32(uint32(a)), nil
		}
		return sext32(uint32(a) % uint32(b)), nil
	}

	return 0, fmt.Errorf("unsupported operation '%s'", op)
}

var _ Instruction = (*LUI)(nil)

type LUI struct {
	riscv.LUI
}

func (i *LUI) Execute(h *Hart) error {
	if err := h.setReg(i.Rd, uint64(i.Imm)); err != nil {
		return err
	}

	h.next()
	return nil
}

var _ Instruction = (*AUIPC)(nil)

type AUIPC struct {
	riscv.AUIPC
}

func (i *AUIPC) Execute(h *Hart) error {
	if err := h.setReg(i.Rd, h.pc.Get()+uint64(i.Imm)); err != nil {
		return err
	}

	h.next()
	return nil
}

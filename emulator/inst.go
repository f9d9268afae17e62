package emulator

import (
	"fmt"
	"reflect"

	"github.com/zircon-rv/zircon/riscv"
)

// Instruction is a decoded instruction which can be executed by a hart.
type Instruction interface {
	riscv.Instruction

	Execute(h *Hart) error
}

// Translate embeds a decoded instruction of the riscv package into the matching instruction of this package,
// which contains the logic to execute it.
func Translate(inst riscv.Instruction) (Instruction, error) {
	switch inst := inst.(type) {
	case *riscv.RegOp:
		return &RegOp{RegOp: *inst}, nil
	case *riscv.ImmOp:
		return &ImmOp{ImmOp: *inst}, nil
	case *riscv.LUI:
		return &LUI{LUI: *inst}, nil
	case *riscv.AUIPC:
		return &AUIPC{AUIPC: *inst}, nil
	case *riscv.Load:
		return &Load{Load: *inst}, nil
	case *riscv.Store:
		return &Store{Store: *inst}, nil
	case *riscv.Branch:
		return &Branch{Branch: *inst}, nil
	case *riscv.JAL:
		return &JAL{JAL: *inst}, nil
	case *riscv.JALR:
		return &JALR{JALR: *inst}, nil
	case *riscv.Ecall:
		return &Ecall{Ecall: *inst}, nil
	case *riscv.Ebreak:
		return &Ebreak{Ebreak: *inst}, nil
	case *riscv.Fence:
		return &Fence{Fence: *inst}, nil
	case *riscv.CSROp:
		return &CSROp{CSROp: *inst}, nil
	case *riscv.AtomicOp:
		return &AtomicOp{AtomicOp: *inst}, nil
	}

	return nil, fmt.Errorf("can't translate instruction of type '%s'", reflect.TypeOf(inst))
}

func sext32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

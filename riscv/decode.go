package riscv

// Decode decodes a 32-bit instruction word. Encodings outside of RV64IMA, Zicsr and the fence instructions
// return an *IllegalInstructionError.
func Decode(w uint32) (Instruction, error) {
	opcode := w & 0x7f
	rd := Register((w >> 7) & 0x1f)
	funct3 := (w >> 12) & 0x7
	rs1 := Register((w >> 15) & 0x1f)
	rs2 := Register((w >> 20) & 0x1f)
	funct7 := w >> 25

	switch opcode {
	case opLUI:
		return &LUI{Rd: rd, Imm: immU(w)}, nil

	case opAUIPC:
		return &AUIPC{Rd: rd, Imm: immU(w)}, nil

	case opJAL:
		return &JAL{Rd: rd, Offset: immJ(w)}, nil

	case opJALR:
		if funct3 != 0 {
			break
		}
		return &JALR{Rd: rd, Rs1: rs1, Offset: immI(w)}, nil

	case opBranch:
		op, ok := lookupOp(opcode, funct3, 0)
		if !ok {
			break
		}
		return &Branch{Op: op, Rs1: rs1, Rs2: rs2, Offset: immB(w)}, nil

	case opLoad:
		op, ok := lookupOp(opcode, funct3, 0)
		if !ok {
			break
		}
		return &Load{Op: op, Rd: rd, Rs1: rs1, Offset: immI(w)}, nil

	case opStore:
		op, ok := lookupOp(opcode, funct3, 0)
		if !ok {
			break
		}
		return &Store{Op: op, Rs1: rs1, Rs2: rs2, Offset: immS(w)}, nil

	case opImm, opImm32:
		imm := immI(w)
		var hi uint32
		if funct3 == 1 || funct3 == 5 {
			hi = funct7
			if opcode == opImm {
				// RV64 shifts have a 6 bit shift amount which takes the low bit of funct7
				hi &^= 1
				imm = int64((w >> 20) & 0x3f)
			} else {
				imm = int64((w >> 20) & 0x1f)
			}
		}

		op, ok := lookupOp(opcode, funct3, hi)
		if !ok {
			break
		}
		return &ImmOp{Op: op, Rd: rd, Rs1: rs1, Imm: imm}, nil

	case opReg, opReg32:
		op, ok := lookupOp(opcode, funct3, funct7)
		if !ok {
			break
		}
		return &RegOp{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}, nil

	case opMiscMem:
		switch funct3 {
		case 0:
			return &Fence{
				FM:   uint8(w >> 28),
				Pred: uint8((w >> 24) & 0xf),
				Succ: uint8((w >> 20) & 0xf),
			}, nil
		case 1:
			return &Fence{I: true}, nil
		}

	case opSystem:
		switch funct3 {
		case 0:
			switch w {
			case ecallWord:
				return &Ecall{}, nil
			case ebreakWord:
				return &Ebreak{}, nil
			}
		case 4:
		default:
			op, ok := lookupOp(opcode, funct3, 0)
			if !ok {
				break
			}
			return &CSROp{Op: op, Rd: rd, Rs1: rs1, CSR: uint16(w >> 20)}, nil
		}

	case opAMO:
		var width int
		switch funct3 {
		case 2:
			width = 4
		case 3:
			width = 8
		default:
			return nil, illegal(w)
		}

		op, ok := lookupOp(opcode, 0, w>>27)
		if !ok {
			break
		}
		if op == OpLr && rs2 != 0 {
			break
		}

		return &AtomicOp{
			Op:    op,
			Width: width,
			Rd:    rd,
			Rs1:   rs1,
			Rs2:   rs2,
			Aq:    (w>>26)&1 == 1,
			Rl:    (w>>25)&1 == 1,
		}, nil
	}

	return nil, illegal(w)
}

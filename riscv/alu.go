package riscv

import "fmt"

var _ Instruction = (*RegOp)(nil)

// RegOp is a register-register ALU operation, including the M extension and the 32-bit "W" variants.
type RegOp struct {
	Op  Op
	Rd  Register
	Rs1 Register
	Rs2 Register
}

func (i *RegOp) Raw() uint32 {
	return encodeR(i.Op.info(), i.Rd, i.Rs1, i.Rs2)
}

func (i *RegOp) Mnemonic() string {
	return i.Op.String()
}

func (i *RegOp) String() string {
	return fmt.Sprintf("%s %s, %s, %s", i.Op, i.Rd, i.Rs1, i.Rs2)
}

var _ Instruction = (*ImmOp)(nil)

// ImmOp is a register-immediate ALU operation. For shifts Imm holds the shift amount.
type ImmOp struct {
	Op  Op
	Rd  Register
	Rs1 Register
	Imm int64
}

// IsShift returns true for the shift-by-immediate operations.
func (i *ImmOp) IsShift() bool {
	switch i.Op {
	case OpSlli, OpSrli, OpSrai, OpSlliw, OpSrliw, OpSraiw:
		return true
	}
	return false
}

func (i *ImmOp) Raw() uint32 {
	info := i.Op.info()
	if i.IsShift() {
		shamt := uint32(i.Imm) & 0x3f
		return info.funct7<<25 | shamt<<20 | uint32(i.Rs1)<<15 | info.funct3<<12 | uint32(i.Rd)<<7 | info.opcode
	}

	return encodeI(info, i.Rd, i.Rs1, i.Imm)
}

func (i *ImmOp) Mnemonic() string {
	return i.Op.String()
}

func (i *ImmOp) String() string {
	return fmt.Sprintf("%s %s, %s, %d", i.Op, i.Rd, i.Rs1, i.Imm)
}

var _ Instruction = (*LUI)(nil)

// LUI loads a 20-bit immediate into the upper bits of a register. Imm is the sign extended value, low 12 bits zero.
type LUI struct {
	Rd  Register
	Imm int64
}

func (i *LUI) Raw() uint32 {
	return uint32(i.Imm)&0xfffff000 | uint32(i.Rd)<<7 | opLUI
}

func (i *LUI) Mnemonic() string {
	return "lui"
}

func (i *LUI) String() string {
	return fmt.Sprintf("lui %s, 0x%x", i.Rd, uint32(i.Imm)>>12)
}

var _ Instruction = (*AUIPC)(nil)

// AUIPC adds a 20-bit upper immediate to the address of the instruction.
type AUIPC struct {
	Rd  Register
	Imm int64
}

func (i *AUIPC) Raw() uint32 {
	return uint32(i.Imm)&0xfffff000 | uint32(i.Rd)<<7 | opAUIPC
}

func (i *AUIPC) Mnemonic() string {
	return "auipc"
}

func (i *AUIPC) String() string {
	return fmt.Sprintf("auipc %s, 0x%x", i.Rd, uint32(i.Imm)>>12)
}

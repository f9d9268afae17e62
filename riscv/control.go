package riscv

import "fmt"

var _ Instruction = (*Branch)(nil)

// Branch jumps to pc+Offset if the comparison of Rs1 and Rs2 holds.
type Branch struct {
	Op     Op
	Rs1    Register
	Rs2    Register
	Offset int64
}

func (i *Branch) Raw() uint32 {
	info := i.Op.info()
	imm := uint32(i.Offset)
	return ((imm>>12)&0x1)<<31 |
		((imm>>5)&0x3f)<<25 |
		uint32(i.Rs2)<<20 |
		uint32(i.Rs1)<<15 |
		info.funct3<<12 |
		((imm>>1)&0xf)<<8 |
		((imm>>11)&0x1)<<7 |
		info.opcode
}

func (i *Branch) Mnemonic() string {
	return i.Op.String()
}

func (i *Branch) String() string {
	return fmt.Sprintf("%s %s, %s, %s", i.Op, i.Rs1, i.Rs2, offset(i.Offset))
}

var _ Instruction = (*JAL)(nil)

// JAL jumps to pc+Offset and writes the return address to Rd.
type JAL struct {
	Rd     Register
	Offset int64
}

func (i *JAL) Raw() uint32 {
	imm := uint32(i.Offset)
	return ((imm>>20)&0x1)<<31 |
		((imm>>1)&0x3ff)<<21 |
		((imm>>11)&0x1)<<20 |
		((imm>>12)&0xff)<<12 |
		uint32(i.Rd)<<7 |
		opJAL
}

func (i *JAL) Mnemonic() string {
	return "jal"
}

func (i *JAL) String() string {
	return fmt.Sprintf("jal %s, %s", i.Rd, offset(i.Offset))
}

var _ Instruction = (*JALR)(nil)

// JALR jumps to (Rs1+Offset) with the lowest bit cleared and writes the return address to Rd.
type JALR struct {
	Rd     Register
	Rs1    Register
	Offset int64
}

func (i *JALR) Raw() uint32 {
	return (uint32(i.Offset)&0xfff)<<20 | uint32(i.Rs1)<<15 | uint32(i.Rd)<<7 | opJALR
}

func (i *JALR) Mnemonic() string {
	return "jalr"
}

func (i *JALR) String() string {
	return fmt.Sprintf("jalr %s, %d(%s)", i.Rd, i.Offset, i.Rs1)
}

package riscv

import "fmt"

var _ Instruction = (*Load)(nil)

// Load reads memory at Rs1+Offset into Rd.
type Load struct {
	Op     Op
	Rd     Register
	Rs1    Register
	Offset int64
}

// Width returns the size of the access in bytes.
func (i *Load) Width() int {
	switch i.Op {
	case OpLb, OpLbu:
		return 1
	case OpLh, OpLhu:
		return 2
	case OpLw, OpLwu:
		return 4
	}
	return 8
}

// Signed returns true if the loaded value is sign extended.
func (i *Load) Signed() bool {
	switch i.Op {
	case OpLbu, OpLhu, OpLwu:
		return false
	}
	return true
}

func (i *Load) Raw() uint32 {
	return encodeI(i.Op.info(), i.Rd, i.Rs1, i.Offset)
}

func (i *Load) Mnemonic() string {
	return i.Op.String()
}

func (i *Load) String() string {
	return fmt.Sprintf("%s %s, %d(%s)", i.Op, i.Rd, i.Offset, i.Rs1)
}

var _ Instruction = (*Store)(nil)

// Store writes the low bytes of Rs2 to memory at Rs1+Offset.
type Store struct {
	Op     Op
	Rs1    Register
	Rs2    Register
	Offset int64
}

// Width returns the size of the access in bytes.
func (i *Store) Width() int {
	switch i.Op {
	case OpSb:
		return 1
	case OpSh:
		return 2
	case OpSw:
		return 4
	}
	return 8
}

func (i *Store) Raw() uint32 {
	info := i.Op.info()
	imm := uint32(i.Offset)
	return ((imm>>5)&0x7f)<<25 | uint32(i.Rs2)<<20 | uint32(i.Rs1)<<15 | info.funct3<<12 | (imm&0x1f)<<7 | info.opcode
}

func (i *Store) Mnemonic() string {
	return i.Op.String()
}

func (i *Store) String() string {
	return fmt.Sprintf("%s %s, %d(%s)", i.Op, i.Rs2, i.Offset, i.Rs1)
}

// Package riscv decodes and encodes the RV64IMA instruction set with the Zicsr extension.
package riscv

import (
	"fmt"

	"github.com/zircon-rv/zircon/isa"
)

// Instruction is a decoded RISC-V instruction.
type Instruction interface {
	fmt.Stringer
	// Raw re-encodes the instruction into its 32-bit instruction word
	Raw() uint32
	// Mnemonic returns the assembly mnemonic without operands
	Mnemonic() string
}

// Register is an integer register number.
type Register uint8

// Integer registers by ABI name
const (
	Zero Register = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

func (r Register) String() string {
	if int(r) < len(isa.GPRNames) {
		return isa.GPRNames[r]
	}

	return fmt.Sprintf("x%d", uint8(r))
}

// Major opcodes, the low 7 bits of the instruction word
const (
	opLoad    = 0x03
	opMiscMem = 0x0f
	opImm     = 0x13
	opAUIPC   = 0x17
	opImm32   = 0x1b
	opStore   = 0x23
	opAMO     = 0x2f
	opReg     = 0x33
	opLUI     = 0x37
	opReg32   = 0x3b
	opBranch  = 0x63
	opJALR    = 0x67
	opJAL     = 0x6f
	opSystem  = 0x73
)

// Op identifies the operation of instructions which share an encoding format.
type Op uint8

const (
	OpInvalid Op = iota

	// R-type, base and M extension
	OpAdd
	OpSub
	OpSll
	OpSlt
	OpSltu
	OpXor
	OpSrl
	OpSra
	OpOr
	OpAnd
	OpMul
	OpMulh
	OpMulhsu
	OpMulhu
	OpDiv
	OpDivu
	OpRem
	OpRemu
	OpAddw
	OpSubw
	OpSllw
	OpSrlw
	OpSraw
	OpMulw
	OpDivw
	OpDivuw
	OpRemw
	OpRemuw

	// I-type ALU
	OpAddi
	OpSlti
	OpSltiu
	OpXori
	OpOri
	OpAndi
	OpSlli
	OpSrli
	OpSrai
	OpAddiw
	OpSlliw
	OpSrliw
	OpSraiw

	// Loads and stores
	OpLb
	OpLh
	OpLw
	OpLd
	OpLbu
	OpLhu
	OpLwu
	OpSb
	OpSh
	OpSw
	OpSd

	// Conditional branches
	OpBeq
	OpBne
	OpBlt
	OpBge
	OpBltu
	OpBgeu

	// Zicsr
	OpCsrrw
	OpCsrrs
	OpCsrrc
	OpCsrrwi
	OpCsrrsi
	OpCsrrci

	// A extension
	OpLr
	OpSc
	OpAmoswap
	OpAmoadd
	OpAmoxor
	OpAmoand
	OpAmoor
	OpAmomin
	OpAmomax
	OpAmominu
	OpAmomaxu
)

type opInfo struct {
	name   string
	opcode uint32
	funct3 uint32
	// funct7 for R-type and shifts, funct5 for atomics
	funct7 uint32
}

var opInfos = map[Op]opInfo{
	OpAdd:    {"add", opReg, 0, 0x00},
	OpSub:    {"sub", opReg, 0, 0x20},
	OpSll:    {"sll", opReg, 1, 0x00},
	OpSlt:    {"slt", opReg, 2, 0x00},
	OpSltu:   {"sltu", opReg, 3, 0x00},
	OpXor:    {"xor", opReg, 4, 0x00},
	OpSrl:    {"srl", opReg, 5, 0x00},
	OpSra:    {"sra", opReg, 5, 0x20},
	OpOr:     {"or", opReg, 6, 0x00},
	OpAnd:    {"and", opReg, 7, 0x00},
	OpMul:    {"mul", opReg, 0, 0x01},
	OpMulh:   {"mulh", opReg, 1, 0x01},
	OpMulhsu: {"mulhsu", opReg, 2, 0x01},
	OpMulhu:  {"mulhu", opReg, 3, 0x01},
	OpDiv:    {"div", opReg, 4, 0x01},
	OpDivu:   {"divu", opReg, 5, 0x01},
	OpRem:    {"rem", opReg, 6, 0x01},
	OpRemu:   {"remu", opReg, 7, 0x01},
	OpAddw:   {"addw", opReg32, 0, 0x00},
	OpSubw:   {"subw", opReg32, 0, 0x20},
	OpSllw:   {"sllw", opReg32, 1, 0x00},
	OpSrlw:   {"srlw", opReg32, 5, 0x00},
	OpSraw:   {"sraw", opReg32, 5, 0x20},
	OpMulw:   {"mulw", opReg32, 0, 0x01},
	OpDivw:   {"divw", opReg32, 4, 0x01},
	OpDivuw:  {"divuw", opReg32, 5, 0x01},
	OpRemw:   {"remw", opReg32, 6, 0x01},
	OpRemuw:  {"remuw", opReg32, 7, 0x01},

	OpAddi:  {"addi", opImm, 0, 0},
	OpSlti:  {"slti", opImm, 2, 0},
	OpSltiu: {"sltiu", opImm, 3, 0},
	OpXori:  {"xori", opImm, 4, 0},
	OpOri:   {"ori", opImm, 6, 0},
	OpAndi:  {"andi", opImm, 7, 0},
	OpSlli:  {"slli", opImm, 1, 0x00},
	OpSrli:  {"srli", opImm, 5, 0x00},
	OpSrai:  {"srai", opImm, 5, 0x20},
	OpAddiw: {"addiw", opImm32, 0, 0},
	OpSlliw: {"slliw", opImm32, 1, 0x00},
	OpSrliw: {"srliw", opImm32, 5, 0x00},
	OpSraiw: {"sraiw", opImm32, 5, 0x20},

	OpLb:  {"lb", opLoad, 0, 0},
	OpLh:  {"lh", opLoad, 1, 0},
	OpLw:  {"lw", opLoad, 2, 0},
	OpLd:  {"ld", opLoad, 3, 0},
	OpLbu: {"lbu", opLoad, 4, 0},
	OpLhu: {"lhu", opLoad, 5, 0},
	OpLwu: {"lwu", opLoad, 6, 0},
	OpSb:  {"sb", opStore, 0, 0},
	OpSh:  {"sh", opStore, 1, 0},
	OpSw:  {"sw", opStore, 2, 0},
	OpSd:  {"sd", opStore, 3, 0},

	OpBeq:  {"beq", opBranch, 0, 0},
	OpBne:  {"bne", opBranch, 1, 0},
	OpBlt:  {"blt", opBranch, 4, 0},
	OpBge:  {"bge", opBranch, 5, 0},
	OpBltu: {"bltu", opBranch, 6, 0},
	OpBgeu: {"bgeu", opBranch, 7, 0},

	OpCsrrw:  {"csrrw", opSystem, 1, 0},
	OpCsrrs:  {"csrrs", opSystem, 2, 0},
	OpCsrrc:  {"csrrc", opSystem, 3, 0},
	OpCsrrwi: {"csrrwi", opSystem, 5, 0},
	OpCsrrsi: {"csrrsi", opSystem, 6, 0},
	OpCsrrci: {"csrrci", opSystem, 7, 0},

	OpLr:      {"lr", opAMO, 0, 0x02},
	OpSc:      {"sc", opAMO, 0, 0x03},
	OpAmoswap: {"amoswap", opAMO, 0, 0x01},
	OpAmoadd:  {"amoadd", opAMO, 0, 0x00},
	OpAmoxor:  {"amoxor", opAMO, 0, 0x04},
	OpAmoand:  {"amoand", opAMO, 0, 0x0c},
	OpAmoor:   {"amoor", opAMO, 0, 0x08},
	OpAmomin:  {"amomin", opAMO, 0, 0x10},
	OpAmomax:  {"amomax", opAMO, 0, 0x14},
	OpAmominu: {"amominu", opAMO, 0, 0x18},
	OpAmomaxu: {"amomaxu", opAMO, 0, 0x1c},
}

// opcode, funct3 and funct7 to Op
var opIndex = map[uint32]Op{}

func init() {
	for op, info := range opInfos {
		opIndex[opKey(info.opcode, info.funct3, info.funct7)] = op
	}
}

func opKey(opcode, funct3, funct7 uint32) uint32 {
	return opcode | funct3<<7 | funct7<<10
}

func lookupOp(opcode, funct3, funct7 uint32) (Op, bool) {
	op, ok := opIndex[opKey(opcode, funct3, funct7)]
	return op, ok
}

func (o Op) String() string {
	if info, ok := opInfos[o]; ok {
		return info.name
	}

	return fmt.Sprintf("Op(%d)", uint8(o))
}

func (o Op) info() opInfo {
	info, ok := opInfos[o]
	if !ok {
		panic(fmt.Sprintf("unknown op %d", uint8(o)))
	}
	return info
}

// Immediate decoding, each result is sign extended from the width of its format

func immI(w uint32) int64 {
	return int64(int32(w) >> 20)
}

func immS(w uint32) int64 {
	return int64(int32(w&0xfe000000)>>20) | int64((w>>7)&0x1f)
}

func immB(w uint32) int64 {
	return int64(int32(w)>>31)<<12 |
		int64((w>>7)&0x1)<<11 |
		int64((w>>25)&0x3f)<<5 |
		int64((w>>8)&0xf)<<1
}

func immU(w uint32) int64 {
	return int64(int32(w & 0xfffff000))
}

func immJ(w uint32) int64 {
	return int64(int32(w)>>31)<<20 |
		int64((w>>12)&0xff)<<12 |
		int64((w>>20)&0x1)<<11 |
		int64((w>>21)&0x3ff)<<1
}

func encodeR(info opInfo, rd, rs1, rs2 Register) uint32 {
	return info.funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | info.funct3<<12 | uint32(rd)<<7 | info.opcode
}

func encodeI(info opInfo, rd, rs1 Register, imm int64) uint32 {
	return (uint32(imm)&0xfff)<<20 | uint32(rs1)<<15 | info.funct3<<12 | uint32(rd)<<7 | info.opcode
}

func offset(off int64) string {
	return fmt.Sprintf("pc%+d", off)
}

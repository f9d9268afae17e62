package riscv

import "fmt"

const (
	ecallWord  = 0x00000073
	ebreakWord = 0x00100073
)

var _ Instruction = (*Ecall)(nil)

// Ecall requests a service from the execution environment, a system call for user mode programs.
type Ecall struct{}

func (i *Ecall) Raw() uint32 {
	return ecallWord
}

func (i *Ecall) Mnemonic() string {
	return "ecall"
}

func (i *Ecall) String() string {
	return "ecall"
}

var _ Instruction = (*Ebreak)(nil)

type Ebreak struct{}

func (i *Ebreak) Raw() uint32 {
	return ebreakWord
}

func (i *Ebreak) Mnemonic() string {
	return "ebreak"
}

func (i *Ebreak) String() string {
	return "ebreak"
}

var _ Instruction = (*Fence)(nil)

// Fence orders memory accesses, or instruction fetches if I is set. A single hart needs neither.
type Fence struct {
	FM   uint8
	Pred uint8
	Succ uint8
	I    bool
}

func (i *Fence) Raw() uint32 {
	if i.I {
		return 1<<12 | opMiscMem
	}

	return uint32(i.FM&0xf)<<28 | uint32(i.Pred&0xf)<<24 | uint32(i.Succ&0xf)<<20 | opMiscMem
}

func (i *Fence) Mnemonic() string {
	if i.I {
		return "fence.i"
	}
	return "fence"
}

func (i *Fence) String() string {
	if i.I {
		return "fence.i"
	}

	return fmt.Sprintf("fence %s, %s", fenceSet(i.Pred), fenceSet(i.Succ))
}

func fenceSet(bits uint8) string {
	var s []byte
	for i, c := range "iorw" {
		if bits&(8>>i) != 0 {
			s = append(s, byte(c))
		}
	}
	if len(s) == 0 {
		return "0"
	}
	return string(s)
}

var _ Instruction = (*CSROp)(nil)

// CSROp atomically reads and modifies a control and status register. For the immediate variants Rs1 holds the
// 5-bit unsigned immediate instead of a register number.
type CSROp struct {
	Op  Op
	Rd  Register
	Rs1 Register
	CSR uint16
}

// Immediate returns true for csrrwi, csrrsi and csrrci.
func (i *CSROp) Immediate() bool {
	return i.Op == OpCsrrwi || i.Op == OpCsrrsi || i.Op == OpCsrrci
}

func (i *CSROp) Raw() uint32 {
	info := i.Op.info()
	return uint32(i.CSR&0xfff)<<20 | uint32(i.Rs1&0x1f)<<15 | info.funct3<<12 | uint32(i.Rd)<<7 | info.opcode
}

func (i *CSROp) Mnemonic() string {
	return i.Op.String()
}

func (i *CSROp) String() string {
	if i.Immediate() {
		return fmt.Sprintf("%s %s, 0x%03x, %d", i.Op, i.Rd, i.CSR, uint8(i.Rs1))
	}

	return fmt.Sprintf("%s %s, 0x%03x, %s", i.Op, i.Rd, i.CSR, i.Rs1)
}

package riscv

import (
	"fmt"
	"strings"
)

var _ Instruction = (*AtomicOp)(nil)

// AtomicOp is a load-reserved, store-conditional or atomic memory operation on the word or double word at Rs1.
type AtomicOp struct {
	Op Op
	// Width is 4 for the .w and 8 for the .d variants
	Width int
	Rd    Register
	Rs1   Register
	Rs2   Register
	Aq    bool
	Rl    bool
}

func (i *AtomicOp) Raw() uint32 {
	info := i.Op.info()
	funct3 := uint32(3)
	if i.Width == 4 {
		funct3 = 2
	}

	var aq, rl uint32
	if i.Aq {
		aq = 1
	}
	if i.Rl {
		rl = 1
	}

	return info.funct7<<27 | aq<<26 | rl<<25 | uint32(i.Rs2)<<20 | uint32(i.Rs1)<<15 | funct3<<12 |
		uint32(i.Rd)<<7 | info.opcode
}

func (i *AtomicOp) Mnemonic() string {
	suffix := ".d"
	if i.Width == 4 {
		suffix = ".w"
	}

	return i.Op.String() + suffix
}

func (i *AtomicOp) String() string {
	var sb strings.Builder
	sb.WriteString(i.Mnemonic())
	if i.Aq {
		sb.WriteString(".aq")
	}
	if i.Rl {
		sb.WriteString(".rl")
	}

	if i.Op == OpLr {
		fmt.Fprintf(&sb, " %s, (%s)", i.Rd, i.Rs1)
	} else {
		fmt.Fprintf(&sb, " %s, %s, (%s)", i.Rd, i.Rs2, i.Rs1)
	}

	return sb.String()
}

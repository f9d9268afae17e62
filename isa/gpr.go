package isa

// Indices of general purpose registers with a fixed role in the calling convention
const (
	RegZero uint = 0
	RegRA   uint = 1
	RegSP   uint = 2
	RegGP   uint = 3
	RegTP   uint = 4
	RegA0   uint = 10
	RegA1   uint = 11
	RegA2   uint = 12
	RegA3   uint = 13
	RegA4   uint = 14
	RegA5   uint = 15
	RegA6   uint = 16
	RegA7   uint = 17
)

// GPRNames are the ABI names of the 32 integer registers
var GPRNames = []string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// NewGPR creates the 32 integer registers, x0 is hard-wired to zero.
func NewGPR() *RegisterClass {
	return &RegisterClass{
		name:   "GPR",
		prefix: "x",
		names:  GPRNames,
		values: make([]uint64, len(GPRNames)),
		zero:   true,
	}
}

// CSR numbers of the unprivileged counters
const (
	CSRCycle   uint = 0xC00
	CSRTime    uint = 0xC01
	CSRInstret uint = 0xC02
)

// NewCSR creates the 4096 control and status registers.
func NewCSR() *RegisterClass {
	return &RegisterClass{
		name:   "CSR",
		prefix: "csr",
		values: make([]uint64, 4096),
		sparse: true,
	}
}

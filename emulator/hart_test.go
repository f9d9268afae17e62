package emulator

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/zircon-rv/zircon/internal/cstr"
	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/mem"
	"github.com/zircon-rv/zircon/riscv"
	"github.com/zircon-rv/zircon/sysbridge"
)

const textBase = 0x10000

func assemble(insts ...riscv.Instruction) []byte {
	code := make([]byte, 4*len(insts))
	for i, inst := range insts {
		binary.LittleEndian.PutUint32(code[i*4:], inst.Raw())
	}
	return code
}

func newTestHart(t *testing.T, code []byte) *Hart {
	t.Helper()

	as := mem.New()
	t.Cleanup(func() {
		as.Close()
	})

	if err := as.Allocate(textBase, uint64(len(code))); err != nil {
		t.Fatal(err)
	}
	if err := as.WriteBytes(textBase, code); err != nil {
		t.Fatal(err)
	}

	settings := DefaultHartSettings()
	settings.Random = bytes.NewReader(bytes.Repeat([]byte{0xAB}, 16))
	settings.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	h, err := NewHart(as, settings)
	if err != nil {
		t.Fatal(err)
	}

	return h
}

func newTestProgram(t *testing.T, insts ...riscv.Instruction) *Hart {
	t.Helper()

	h := newTestHart(t, assemble(insts...))
	if err := h.Init([]string{"test"}, nil); err != nil {
		t.Fatal(err)
	}

	return h
}

func TestHaltOnJumpToSelf(t *testing.T) {
	h := newTestHart(t, assemble(
		&riscv.JAL{Rd: riscv.Zero, Offset: 0},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 1},
	))

	before, after := 0, 0
	h.OnBeforeExecute.AddListener(func(h *Hart) error {
		before++
		return nil
	})
	h.OnAfterExecute.AddListener(func(h *Hart) error {
		after++
		return nil
	})

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	if before != 1 || after != 1 || h.Steps() != 1 {
		t.Fatalf("expected exactly one executed instruction, before=%d after=%d steps=%d", before, after, h.Steps())
	}
	if h.State() != StateHalted {
		t.Fatalf("expected state halted, got '%s'", h.State())
	}
	if h.ProgramCounter().Previous() != textBase {
		t.Fatalf("expected previous pc 0x%x, got 0x%x", textBase, h.ProgramCounter().Previous())
	}
	if h.Registers().GPR.Value(isa.RegA0) != 0 {
		t.Fatal("instruction after the jump was executed")
	}
}

func TestEventOrdering(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 1},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A1, Rs1: riscv.A0, Imm: 2},
		&riscv.Store{Op: riscv.OpSd, Rs1: riscv.SP, Rs2: riscv.A1, Offset: -8},
		&riscv.Load{Op: riscv.OpLd, Rd: riscv.A2, Rs1: riscv.SP, Offset: -8},
		&riscv.RegOp{Op: riscv.OpAdd, Rd: riscv.A3, Rs1: riscv.A2, Rs2: riscv.A0},
	)

	var hooks []string
	h.OnBeforeExecute.AddListener(func(h *Hart) error {
		hooks = append(hooks, "before")
		return nil
	})
	h.OnAfterExecute.AddListener(func(h *Hart) error {
		hooks = append(hooks, "after")
		return nil
	})

	regEvents, memEvents := 0, 0
	h.Registers().OnRead(func(e isa.RegisterRead) error {
		regEvents++
		return nil
	})
	h.Registers().OnWrite(func(e isa.RegisterWrite) error {
		regEvents++
		return nil
	})
	h.Memory().OnRead.AddListener(func(e mem.ReadEvent) error {
		memEvents++
		return nil
	})
	h.Memory().OnWrite.AddListener(func(e mem.WriteEvent) error {
		memEvents++
		return nil
	})

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	const n = 5
	if len(hooks) != 2*n {
		t.Fatalf("expected %d hook events, got %d", 2*n, len(hooks))
	}
	for i, hook := range hooks {
		expected := "before"
		if i%2 == 1 {
			expected = "after"
		}
		if hook != expected {
			t.Fatalf("event %d is '%s', expected '%s'", i, hook, expected)
		}
	}

	if memEvents != 2 {
		t.Fatalf("expected 2 memory events, got %d", memEvents)
	}
	// addi: 1 read 1 write, addi: 1+1, sd: 2 reads, ld: 1+1, add: 2+1
	if regEvents != 11 {
		t.Fatalf("expected 11 register events, got %d", regEvents)
	}

	if v := h.Registers().GPR.Value(isa.RegA3); v != 4 {
		t.Fatalf("expected a3 = 4, got %d", v)
	}
}

func TestStackLayout(t *testing.T) {
	h := newTestHart(t, assemble(&riscv.Fence{}))
	if err := h.Init([]string{"a", "bb"}, []EnvVar{{Key: "X", Value: "Y"}}); err != nil {
		t.Fatal(err)
	}

	as := h.Memory()
	sp := h.Registers().GPR.Value(isa.RegSP)
	if sp%128 != 0 {
		t.Fatalf("stack pointer 0x%x is not 128 byte aligned", sp)
	}

	word := func(i int) uint64 {
		b, err := as.ReadBytes(sp+uint64(i)*8, 8)
		if err != nil {
			t.Fatal(err)
		}
		return binary.LittleEndian.Uint64(b)
	}
	str := func(addr uint64) string {
		s, ok := cstr.Read(as.Raw(addr))
		if !ok {
			t.Fatalf("string at 0x%x is not terminated", addr)
		}
		return s
	}

	if argc := word(0); argc != 2 {
		t.Fatalf("expected argc 2, got %d", argc)
	}
	if s := str(word(1)); s != "a" {
		t.Fatalf("expected argv[0] 'a', got '%s'", s)
	}
	if s := str(word(2)); s != "bb" {
		t.Fatalf("expected argv[1] 'bb', got '%s'", s)
	}
	if word(3) != 0 {
		t.Fatal("argv is not null terminated")
	}
	if s := str(word(4)); s != "X=Y" {
		t.Fatalf("expected envp[0] 'X=Y', got '%s'", s)
	}
	if word(5) != 0 {
		t.Fatal("envp is not null terminated")
	}

	aux := map[uint64]uint64{}
	i := 6
	for ; ; i += 2 {
		typ, val := word(i), word(i+1)
		if typ == AT_NULL {
			if val != 0 {
				t.Fatalf("AT_NULL has value 0x%x", val)
			}
			break
		}
		aux[typ] = val
	}

	if aux[AT_PAGESZ] != 4096 {
		t.Fatalf("expected AT_PAGESZ 4096, got %d", aux[AT_PAGESZ])
	}
	random, err := as.ReadBytes(aux[AT_RANDOM], 16)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(random, bytes.Repeat([]byte{0xAB}, 16)) {
		t.Fatalf("unexpected AT_RANDOM bytes % x", random)
	}

	heapStart := as.Locations[mem.LocHeapStart]
	heapEnd := as.Locations[mem.LocHeapEnd]
	if heapEnd-heapStart != 16+2+3+4 {
		t.Fatalf("expected heap to contain the random bytes and strings, heap is %d bytes", heapEnd-heapStart)
	}
}

func TestStackAlignmentWithOddStackSize(t *testing.T) {
	for _, size := range []uint64{1000, 0x10001, 200} {
		as := mem.New()
		defer as.Close()

		settings := DefaultHartSettings()
		settings.StackSize = size
		settings.Random = bytes.NewReader(make([]byte, 16))
		settings.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

		h, err := NewHart(as, settings)
		if err != nil {
			t.Fatal(err)
		}
		if err := h.Init([]string{"a", "bb"}, []EnvVar{{Key: "X", Value: "Y"}}); err != nil {
			t.Fatalf("stack size %d: %s", size, err)
		}

		sp := h.Registers().GPR.Value(isa.RegSP)
		if sp%128 != 0 {
			t.Fatalf("stack size %d: stack pointer 0x%x is not 128 byte aligned", size, sp)
		}
		if sp < settings.StackStart || sp+12*8 > settings.StackStart+size {
			t.Fatalf("stack size %d: initial stack at 0x%x does not fit in the stack", size, sp)
		}

		argc, err := as.ReadBytes(sp, 8)
		if err != nil {
			t.Fatal(err)
		}
		if binary.LittleEndian.Uint64(argc) != 2 {
			t.Fatalf("stack size %d: expected argc 2, got %d", size, binary.LittleEndian.Uint64(argc))
		}
	}
}

func TestStackTooSmall(t *testing.T) {
	as := mem.New()
	defer as.Close()

	settings := DefaultHartSettings()
	settings.StackSize = 64
	settings.Random = bytes.NewReader(make([]byte, 16))
	settings.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	h, err := NewHart(as, settings)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Init([]string{"a", "bb"}, []EnvVar{{Key: "X", Value: "Y"}}); err == nil {
		t.Fatal("expected initial stack not to fit")
	}
}

func TestZeroRegister(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.Zero, Rs1: riscv.Zero, Imm: 5},
		&riscv.RegOp{Op: riscv.OpAdd, Rd: riscv.A0, Rs1: riscv.Zero, Rs2: riscv.Zero},
	)
	h.Registers().GPR.SetValue(isa.RegA0, 99)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	if v := h.Registers().GPR.Value(isa.RegZero); v != 0 {
		t.Fatalf("x0 holds %d", v)
	}
	if v := h.Registers().GPR.Value(isa.RegA0); v != 0 {
		t.Fatalf("x0 did not read as zero, a0 = %d", v)
	}
}

func TestLoop(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 0},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A1, Rs1: riscv.Zero, Imm: 10},
		&riscv.RegOp{Op: riscv.OpAdd, Rd: riscv.A0, Rs1: riscv.A0, Rs2: riscv.A1},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A1, Rs1: riscv.A1, Imm: -1},
		&riscv.Branch{Op: riscv.OpBne, Rs1: riscv.A1, Rs2: riscv.Zero, Offset: -8},
	)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	if v := h.Registers().GPR.Value(isa.RegA0); v != 55 {
		t.Fatalf("expected 55, got %d", v)
	}
	if h.Steps() != 2+3*10 {
		t.Fatalf("expected 32 steps, got %d", h.Steps())
	}
}

func TestCallAndReturn(t *testing.T) {
	// Calls a function setting a0 to 41, adds one to the result and jumps over the function body.
	h := newTestProgram(t,
		&riscv.JAL{Rd: riscv.RA, Offset: 12},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A1, Rs1: riscv.A0, Imm: 1},
		&riscv.JAL{Rd: riscv.Zero, Offset: 12},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 41},
		&riscv.JALR{Rd: riscv.Zero, Rs1: riscv.RA, Offset: 0},
		&riscv.AUIPC{Rd: riscv.A2, Imm: 0x1000},
	)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	gpr := h.Registers().GPR
	if v := gpr.Value(isa.RegA1); v != 42 {
		t.Fatalf("expected a1 = 42, got %d", v)
	}
	if v := gpr.Value(isa.RegA2); v != textBase+20+0x1000 {
		t.Fatalf("expected a2 = 0x%x, got 0x%x", textBase+20+0x1000, v)
	}
}

func TestExitSyscall(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 42},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A7, Rs1: riscv.Zero, Imm: sysbridge.SysExitGroup},
		&riscv.Ecall{},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 1},
	)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	code, ok := h.ExitCode()
	if !ok || code != 42 {
		t.Fatalf("expected exit code 42, got %d (%v)", code, ok)
	}
	if h.Steps() != 3 {
		t.Fatalf("expected 3 steps, got %d", h.Steps())
	}
	if !h.Halted() {
		t.Fatal("hart did not halt")
	}
}

func TestUnimplementedSyscall(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 7},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A7, Rs1: riscv.Zero, Imm: 2047},
		&riscv.Ecall{},
	)

	err := h.Execute(textBase)
	if !errors.Is(err, sysbridge.ErrUnimplemented) {
		t.Fatalf("expected ErrUnimplemented, got: %v", err)
	}

	var unimplemented *sysbridge.UnimplementedError
	if !errors.As(err, &unimplemented) || unimplemented.Number != 2047 {
		t.Fatalf("expected *UnimplementedError for 2047, got: %v", err)
	}

	if v := h.Registers().GPR.Value(isa.RegA0); v != 7 {
		t.Fatalf("a0 was changed to %d", v)
	}
	if h.State() != StateFaulted {
		t.Fatalf("expected state faulted, got '%s'", h.State())
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name     string
		code     []byte
		expected error
		state    State
	}{
		{name: "illegal", code: []byte{0, 0, 0, 0}, expected: riscv.ErrIllegalInstruction, state: StateFaulted},
		{
			name:     "unmapped load",
			code:     assemble(&riscv.Load{Op: riscv.OpLd, Rd: riscv.A0, Rs1: riscv.Zero, Offset: 8}),
			expected: mem.ErrUnmapped,
			state:    StateFaulted,
		},
		{
			name:     "misaligned jump",
			code:     assemble(&riscv.JAL{Rd: riscv.Zero, Offset: 2}, &riscv.Fence{}),
			expected: ErrMisaligned,
			state:    StateFaulted,
		},
		{name: "ebreak", code: assemble(&riscv.Ebreak{}), expected: ErrBreakpoint, state: StateHalted},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newTestHart(t, test.code)

			err := h.Execute(textBase)
			if !errors.Is(err, test.expected) {
				t.Fatalf("expected '%s', got: %v", test.expected, err)
			}

			var hartErr *HartError
			if !errors.As(err, &hartErr) {
				t.Fatalf("expected *HartError, got %T", err)
			}
			if h.State() != test.state {
				t.Fatalf("expected state '%s', got '%s'", test.state, h.State())
			}

			if err := h.Step(); !errors.Is(err, ErrHalted) {
				t.Fatalf("expected ErrHalted after the hart stopped, got: %v", err)
			}
		})
	}
}

func TestLoadSignExtension(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.T0, Rs1: riscv.Zero, Imm: -2},
		&riscv.Store{Op: riscv.OpSw, Rs1: riscv.SP, Rs2: riscv.T0, Offset: -8},
		&riscv.Load{Op: riscv.OpLb, Rd: riscv.A0, Rs1: riscv.SP, Offset: -8},
		&riscv.Load{Op: riscv.OpLbu, Rd: riscv.A1, Rs1: riscv.SP, Offset: -8},
		&riscv.Load{Op: riscv.OpLh, Rd: riscv.A2, Rs1: riscv.SP, Offset: -8},
		&riscv.Load{Op: riscv.OpLhu, Rd: riscv.A3, Rs1: riscv.SP, Offset: -8},
		&riscv.Load{Op: riscv.OpLwu, Rd: riscv.A4, Rs1: riscv.SP, Offset: -8},
	)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	gpr := h.Registers().GPR
	expected := map[uint]uint64{
		isa.RegA0: 0xfffffffffffffffe,
		isa.RegA1: 0xfe,
		isa.RegA2: 0xfffffffffffffffe,
		isa.RegA3: 0xfffe,
		isa.RegA4: 0xfffffffe,
	}
	for reg, v := range expected {
		if gpr.Value(reg) != v {
			t.Errorf("%s: expected 0x%x, got 0x%x", gpr.RegisterName(reg), v, gpr.Value(reg))
		}
	}
}

func TestLoadReservedStoreConditional(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.S0, Rs1: riscv.SP, Imm: -16},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A2, Rs1: riscv.Zero, Imm: 99},
		&riscv.AtomicOp{Op: riscv.OpLr, Width: 8, Rd: riscv.A0, Rs1: riscv.S0},
		&riscv.AtomicOp{Op: riscv.OpSc, Width: 8, Rd: riscv.A1, Rs1: riscv.S0, Rs2: riscv.A2},
		&riscv.AtomicOp{Op: riscv.OpSc, Width: 8, Rd: riscv.A3, Rs1: riscv.S0, Rs2: riscv.A2},
		&riscv.AtomicOp{Op: riscv.OpLr, Width: 8, Rd: riscv.A0, Rs1: riscv.S0},
		&riscv.Store{Op: riscv.OpSd, Rs1: riscv.S0, Rs2: riscv.Zero},
		&riscv.AtomicOp{Op: riscv.OpSc, Width: 8, Rd: riscv.A4, Rs1: riscv.S0, Rs2: riscv.A2},
	)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	gpr := h.Registers().GPR
	if gpr.Value(isa.RegA1) != 0 {
		t.Fatal("store conditional with a valid reservation failed")
	}
	if gpr.Value(isa.RegA3) != 1 {
		t.Fatal("store conditional without reservation succeeded")
	}
	if gpr.Value(isa.RegA4) != 1 {
		t.Fatal("store conditional after an intervening store succeeded")
	}
	if gpr.Value(isa.RegA0) != 99 {
		t.Fatalf("expected lr to read 99, got %d", gpr.Value(isa.RegA0))
	}
}

func TestAtomicMemoryOperations(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.S0, Rs1: riscv.SP, Imm: -16},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.T0, Rs1: riscv.Zero, Imm: -5},
		&riscv.Store{Op: riscv.OpSw, Rs1: riscv.S0, Rs2: riscv.T0},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.T1, Rs1: riscv.Zero, Imm: 3},
		&riscv.AtomicOp{Op: riscv.OpAmoadd, Width: 4, Rd: riscv.A0, Rs1: riscv.S0, Rs2: riscv.T1},
		&riscv.AtomicOp{Op: riscv.OpAmomax, Width: 4, Rd: riscv.A1, Rs1: riscv.S0, Rs2: riscv.T1},
		&riscv.AtomicOp{Op: riscv.OpAmominu, Width: 4, Rd: riscv.A2, Rs1: riscv.S0, Rs2: riscv.T0},
		&riscv.Load{Op: riscv.OpLw, Rd: riscv.A3, Rs1: riscv.S0},
	)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	gpr := h.Registers().GPR
	// -5 + 3 = -2, max(-2, 3) = 3, minu(3, -5) = 3
	if int64(gpr.Value(isa.RegA0)) != -5 {
		t.Fatalf("amoadd returned %d", int64(gpr.Value(isa.RegA0)))
	}
	if int64(gpr.Value(isa.RegA1)) != -2 {
		t.Fatalf("amomax returned %d", int64(gpr.Value(isa.RegA1)))
	}
	if gpr.Value(isa.RegA2) != 3 {
		t.Fatalf("amominu returned %d", gpr.Value(isa.RegA2))
	}
	if gpr.Value(isa.RegA3) != 3 {
		t.Fatalf("expected memory to hold 3, got %d", gpr.Value(isa.RegA3))
	}
}

func TestCSR(t *testing.T) {
	h := newTestProgram(t,
		&riscv.Fence{},
		&riscv.CSROp{Op: riscv.OpCsrrs, Rd: riscv.A0, Rs1: riscv.Zero, CSR: uint16(isa.CSRInstret)},
		&riscv.CSROp{Op: riscv.OpCsrrwi, Rd: riscv.Zero, Rs1: 5, CSR: 0x340},
		&riscv.CSROp{Op: riscv.OpCsrrsi, Rd: riscv.A1, Rs1: 2, CSR: 0x340},
		&riscv.CSROp{Op: riscv.OpCsrrs, Rd: riscv.A2, Rs1: riscv.Zero, CSR: 0x340},
	)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	gpr := h.Registers().GPR
	if gpr.Value(isa.RegA0) != 1 {
		t.Fatalf("expected instret 1, got %d", gpr.Value(isa.RegA0))
	}
	if gpr.Value(isa.RegA1) != 5 || gpr.Value(isa.RegA2) != 7 {
		t.Fatalf("unexpected csr values %d and %d", gpr.Value(isa.RegA1), gpr.Value(isa.RegA2))
	}

	h = newTestProgram(t, &riscv.CSROp{Op: riscv.OpCsrrw, Rd: riscv.A0, Rs1: riscv.A0, CSR: uint16(isa.CSRCycle)})
	if err := h.Execute(textBase); !errors.Is(err, riscv.ErrIllegalInstruction) {
		t.Fatalf("expected write to cycle to be illegal, got: %v", err)
	}
}

func TestCSRWriteToZeroSkipsRead(t *testing.T) {
	h := newTestProgram(t,
		&riscv.CSROp{Op: riscv.OpCsrrwi, Rd: riscv.Zero, Rs1: 5, CSR: 0x340},
		&riscv.CSROp{Op: riscv.OpCsrrw, Rd: riscv.Zero, Rs1: riscv.A0, CSR: 0x341},
	)

	reads := 0
	h.Registers().CSR.OnRead.AddListener(func(e isa.RegisterRead) error {
		reads++
		return nil
	})

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	if reads != 0 {
		t.Fatalf("expected no csr reads, got %d", reads)
	}
	if v := h.Registers().CSR.Value(0x340); v != 5 {
		t.Fatalf("expected csr 0x340 to hold 5, got %d", v)
	}
}

func TestStopFromListener(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.A0, Imm: 1},
		&riscv.JAL{Rd: riscv.Zero, Offset: -4},
	)

	h.OnAfterExecute.AddListener(func(h *Hart) error {
		if h.Steps() == 10 {
			h.Stop()
		}
		return nil
	})

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	if h.Steps() != 10 {
		t.Fatalf("expected 10 steps, got %d", h.Steps())
	}
	if v := h.Registers().GPR.Value(isa.RegA0); v != 5 {
		t.Fatalf("expected a0 = 5, got %d", v)
	}
}

func TestExecuteContext(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.A0, Imm: 1},
		&riscv.JAL{Rd: riscv.Zero, Offset: -4},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.ExecuteContext(ctx, textBase); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if h.Steps() != 1 {
		t.Fatalf("expected 1 step, got %d", h.Steps())
	}
}

func TestListenerErrorAborts(t *testing.T) {
	h := newTestProgram(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 1},
	)

	errAbort := errors.New("abort")
	h.Registers().OnWrite(func(e isa.RegisterWrite) error {
		return errAbort
	})

	if err := h.Execute(textBase); !errors.Is(err, errAbort) {
		t.Fatalf("expected listener error, got: %v", err)
	}
}

func TestDisassemble(t *testing.T) {
	h := newTestHart(t, assemble(&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 10}))
	h.ProgramCounter().Set(textBase)

	if s := h.Disassemble(); s != "addi a0, zero, 10" {
		t.Fatalf("unexpected disassembly '%s'", s)
	}
}

package trace

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/zircon-rv/zircon/emulator"
	"github.com/zircon-rv/zircon/mem"
	"github.com/zircon-rv/zircon/riscv"
)

const textBase = 0x10000

func testHart(t *testing.T, insts ...riscv.Instruction) *emulator.Hart {
	t.Helper()

	as := mem.New()
	t.Cleanup(func() {
		as.Close()
	})

	code := make([]byte, 4*len(insts))
	for i, inst := range insts {
		binary.LittleEndian.PutUint32(code[i*4:], inst.Raw())
	}
	if err := as.Allocate(textBase, uint64(len(code))); err != nil {
		t.Fatal(err)
	}
	if err := as.WriteBytes(textBase, code); err != nil {
		t.Fatal(err)
	}

	settings := emulator.DefaultHartSettings()
	settings.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	h, err := emulator.NewHart(as, settings)
	if err != nil {
		t.Fatal(err)
	}

	return h
}

func TestTraceInstructionsAndRegisters(t *testing.T) {
	h := testHart(t, &riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A0, Rs1: riscv.Zero, Imm: 1})

	var out bytes.Buffer
	tracer := NewTracer(&out, false)
	tracer.Instructions(h)
	tracer.Registers(h.Registers())

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	expected := "PC[0x0000000000010000] = 0x00100513; addi a0, zero, 1\n" +
		"RD GPR[0] = 0x0000000000000000\n" +
		"WR GPR[10] = 0x0000000000000001; OLD VALUE = 0x0000000000000000\n"
	if out.String() != expected {
		t.Fatalf("unexpected trace:\n%s\nexpected:\n%s", out.String(), expected)
	}
}

func TestTraceMemory(t *testing.T) {
	as := mem.New()
	defer as.Close()

	var out bytes.Buffer
	NewTracer(&out, false).Memory(as)

	if err := as.Allocate(0x1000, 16); err != nil {
		t.Fatal(err)
	}
	if err := as.Write32(0x1000, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if _, err := as.Read8(0x1000); err != nil {
		t.Fatal(err)
	}

	expected := "ALLOCATE[0x0000000000001000 - 0x0000000000001010]\n" +
		"WR MEM[0x0000000000001000] = 0xdeadbeef; OLD VALUE = 0x00000000\n" +
		"RD MEM[0x0000000000001000] = 0xef\n"
	if out.String() != expected {
		t.Fatalf("unexpected trace:\n%s\nexpected:\n%s", out.String(), expected)
	}
}

func TestTraceColor(t *testing.T) {
	as := mem.New()
	defer as.Close()

	var out bytes.Buffer
	NewTracer(&out, true).Memory(as)

	if err := as.Allocate(0x1000, 16); err != nil {
		t.Fatal(err)
	}

	expected := "ALLOCATE[" + Colors.Addr + "0x0000000000001000" + Colors.Reset + " - " +
		Colors.Addr + "0x0000000000001010" + Colors.Reset + "]\n"
	if out.String() != expected {
		t.Fatalf("unexpected trace %q", out.String())
	}
}

func TestStats(t *testing.T) {
	h := testHart(t,
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A1, Rs1: riscv.Zero, Imm: 3},
		&riscv.ImmOp{Op: riscv.OpAddi, Rd: riscv.A1, Rs1: riscv.A1, Imm: -1},
		&riscv.Branch{Op: riscv.OpBne, Rs1: riscv.A1, Rs2: riscv.Zero, Offset: -4},
	)

	stats := NewStats()
	stats.Attach(h)

	if err := h.Execute(textBase); err != nil {
		t.Fatal(err)
	}

	if stats.Total() != 7 || stats.Get("addi") != 4 || stats.Get("bne") != 3 {
		t.Fatalf("unexpected counts: total %d, addi %d, bne %d", stats.Total(), stats.Get("addi"), stats.Get("bne"))
	}

	var out bytes.Buffer
	if _, err := stats.WriteTo(&out); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got:\n%s", out.String())
	}
	if lines[0] != "7 instructions executed" {
		t.Fatalf("unexpected header '%s'", lines[0])
	}
	if !strings.HasPrefix(lines[1], "addi") || !strings.HasPrefix(lines[2], "bne") {
		t.Fatalf("histogram is not sorted by count:\n%s", out.String())
	}
}

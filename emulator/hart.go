package emulator

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zircon-rv/zircon/event"
	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/mem"
	"github.com/zircon-rv/zircon/riscv"
	"github.com/zircon-rv/zircon/sysbridge"
)

var (
	// ErrBreakpoint is returned when the guest executes ebreak
	ErrBreakpoint = errors.New("breakpoint")
	// ErrFetch is returned when the instruction at the program counter can't be fetched
	ErrFetch = errors.New("instruction fetch failed")
	// ErrMisaligned is returned for misaligned instruction fetches and atomic memory accesses
	ErrMisaligned = errors.New("misaligned address")
	// ErrHalted is returned when stepping a hart which is no longer running
	ErrHalted = errors.New("hart is halted")
)

// State is the life cycle state of a hart.
type State int

const (
	StateInitializing State = iota
	StateRunning
	StateHalted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ProgramCounter holds the address of the current instruction and the value it had before the last Set.
type ProgramCounter struct {
	current  uint64
	previous uint64
}

func (pc *ProgramCounter) Get() uint64 {
	return pc.current
}

// Set moves the current value to previous and sets a new current value.
func (pc *ProgramCounter) Set(v uint64) {
	pc.previous = pc.current
	pc.current = v
}

func (pc *ProgramCounter) Previous() uint64 {
	return pc.previous
}

// HartSettings configure the process layout and the collaborators of a hart.
type HartSettings struct {
	// HeapStart is the base of the heap, the heap starts out empty
	HeapStart uint64
	// StackStart is the lowest address of the stack
	StackStart uint64
	StackSize  uint64
	// PageSize is reported to the guest in the auxiliary vector
	PageSize uint64
	// Random is the source of the 16 bytes the auxiliary vector points to
	Random io.Reader
	// Bridge handles ecall, a bridge with the default table is used if nil
	Bridge *sysbridge.Bridge
	Logger *slog.Logger
}

// DefaultHartSettings returns the process layout used by Linux on 64-bit RISC-V, scaled down.
func DefaultHartSettings() HartSettings {
	return HartSettings{
		HeapStart:  0x100000000,
		StackStart: 0x7fffffff00000000,
		StackSize:  0x10000,
		PageSize:   4096,
		Random:     rand.Reader,
		Logger:     slog.Default(),
	}
}

// Hart is a single RISC-V hardware thread executing a user mode program.
type Hart struct {
	settings HartSettings
	bridge   *sysbridge.Bridge
	logger   *slog.Logger

	mem  *mem.AddressSpace
	regs *isa.RegisterFile
	pc   ProgramCounter

	state    State
	stopped  bool
	exited   bool
	exitCode uint64
	steps    uint64

	// The last executed instruction and its address, used for halt detection
	last   Instruction
	lastPC uint64

	reservation struct {
		addr  uint64
		valid bool
	}

	OnBeforeExecute event.Event[*Hart]
	OnAfterExecute  event.Event[*Hart]
}

// NewHart creates a hart which executes code in as.
func NewHart(as *mem.AddressSpace, settings HartSettings) (*Hart, error) {
	if settings.StackSize == 0 {
		return nil, fmt.Errorf("stack size can't be zero")
	}
	if settings.PageSize == 0 || settings.PageSize&(settings.PageSize-1) != 0 {
		return nil, fmt.Errorf("page size %d is not a power of two", settings.PageSize)
	}
	if settings.StackStart+settings.StackSize < settings.StackStart {
		return nil, fmt.Errorf("stack at 0x%x of 0x%x bytes: %w", settings.StackStart, settings.StackSize, mem.ErrOverflow)
	}

	if settings.Random == nil {
		settings.Random = rand.Reader
	}
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}

	bridge := settings.Bridge
	if bridge == nil {
		bridge = sysbridge.NewBridge(nil)
		bridge.Logger = settings.Logger
	}

	return &Hart{
		settings: settings,
		bridge:   bridge,
		logger:   settings.Logger,
		mem:      as,
		regs:     isa.NewRegisterFile(),
	}, nil
}

// Registers returns the register file.
func (h *Hart) Registers() *isa.RegisterFile {
	return h.regs
}

// Memory returns the address space the hart executes in.
func (h *Hart) Memory() *mem.AddressSpace {
	return h.mem
}

// ProgramCounter returns the program counter, changing it redirects execution.
func (h *Hart) ProgramCounter() *ProgramCounter {
	return &h.pc
}

// PC returns the address of the current instruction.
func (h *Hart) PC() uint64 {
	return h.pc.Get()
}

func (h *Hart) State() State {
	return h.state
}

// Steps returns the number of executed instructions.
func (h *Hart) Steps() uint64 {
	return h.steps
}

// Stop halts the hart after the current instruction.
func (h *Hart) Stop() {
	h.stopped = true
}

// Exit stops the hart and records the exit code of the guest.
func (h *Hart) Exit(code uint64) {
	h.exited = true
	h.exitCode = code
	h.Stop()
}

// ExitCode returns the code passed to exit, ok is false if the guest did not exit.
func (h *Hart) ExitCode() (code uint64, ok bool) {
	return h.exitCode, h.exited
}

// Halted returns true once the hart stopped executing, normally or because of a fault.
func (h *Hart) Halted() bool {
	return h.state == StateHalted || h.state == StateFaulted
}

// Fetch returns the instruction word at the program counter without emitting memory events.
func (h *Hart) Fetch() (uint32, error) {
	return h.fetch(h.pc.Get())
}

func (h *Hart) fetch(pc uint64) (uint32, error) {
	if pc%4 != 0 {
		return 0, fmt.Errorf("%w: fetch at 0x%016x", ErrMisaligned, pc)
	}

	raw := h.mem.Raw(pc)
	if len(raw) < 4 {
		return 0, fmt.Errorf("%w: 0x%016x", ErrFetch, pc)
	}

	return binary.LittleEndian.Uint32(raw), nil
}

// Current decodes the instruction at the program counter.
func (h *Hart) Current() (riscv.Instruction, error) {
	word, err := h.Fetch()
	if err != nil {
		return nil, err
	}

	return riscv.Decode(word)
}

// Disassemble returns the disassembly of the instruction at the program counter, or a description of why it
// could not be decoded.
func (h *Hart) Disassemble() string {
	inst, err := h.Current()
	if err != nil {
		return fmt.Sprintf("<%s>", err)
	}

	return inst.String()
}

// Execute runs the program starting at start until it halts.
func (h *Hart) Execute(start uint64) error {
	return h.ExecuteContext(context.Background(), start)
}

// ExecuteContext runs the program starting at start until it halts, faults or ctx is done.
func (h *Hart) ExecuteContext(ctx context.Context, start uint64) error {
	if h.Halted() {
		return ErrHalted
	}

	h.pc.Set(start)
	h.state = StateRunning

	for {
		if err := h.Step(); err != nil {
			return err
		}

		if h.shouldHalt() {
			h.state = StateHalted
			h.logger.Debug("hart halted", "pc", h.pc.Get(), "steps", h.steps)
			return nil
		}

		// If context was canceled or deadline exceeded, stop execution
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("execute: %w", err)
		}
	}
}

// shouldHalt is evaluated after every instruction.
func (h *Hart) shouldHalt() bool {
	if h.stopped {
		return true
	}

	if h.mem.Raw(h.pc.Get()) == nil {
		return true
	}

	// A jump to itself can never end
	if jal, ok := h.last.(*JAL); ok && h.lastPC+uint64(jal.Offset) == h.pc.Previous() {
		return true
	}

	return false
}

// Step executes a single instruction.
func (h *Hart) Step() error {
	if h.Halted() {
		return ErrHalted
	}
	h.state = StateRunning

	pc := h.pc.Get()
	if err := h.OnBeforeExecute.Emit(h); err != nil {
		return h.fault(pc, 0, nil, err)
	}

	word, err := h.fetch(pc)
	if err != nil {
		return h.fault(pc, 0, nil, err)
	}

	decoded, err := riscv.Decode(word)
	if err != nil {
		return h.fault(pc, word, nil, err)
	}

	inst, err := Translate(decoded)
	if err != nil {
		return h.fault(pc, word, decoded, err)
	}

	if err := inst.Execute(h); err != nil {
		return h.fault(pc, word, decoded, err)
	}

	h.last = inst
	h.lastPC = pc
	h.steps++
	h.regs.CSR.SetValue(isa.CSRCycle, h.steps)
	h.regs.CSR.SetValue(isa.CSRInstret, h.steps)

	if err := h.OnAfterExecute.Emit(h); err != nil {
		return h.fault(pc, word, decoded, err)
	}

	return nil
}

func (h *Hart) fault(pc uint64, word uint32, inst riscv.Instruction, err error) *HartError {
	hartErr := &HartError{
		PC:   pc,
		Word: word,
		Err:  err,
	}
	if inst != nil {
		hartErr.Instruction = inst.String()
	}

	if errors.Is(err, ErrBreakpoint) {
		h.state = StateHalted
		h.logger.Info("breakpoint", "pc", pc)
	} else {
		h.state = StateFaulted
		h.logger.Error("hart fault", "pc", pc, "word", word, "err", err)
	}

	return hartErr
}

func (h *Hart) reg(r riscv.Register) (uint64, error) {
	return h.regs.GPR.Read(uint(r))
}

func (h *Hart) setReg(r riscv.Register, v uint64) error {
	return h.regs.GPR.Write(uint(r), v)
}

// next advances the program counter to the following instruction.
func (h *Hart) next() {
	h.pc.Set(h.pc.Get() + 4)
}

// HartError is returned by the hart when an instruction can't be executed. It contains the location and
// instruction word of the failure.
type HartError struct {
	PC          uint64
	Word        uint32
	Instruction string
	Err         error
}

func (e *HartError) Error() string {
	if e.Instruction != "" {
		return fmt.Sprintf("hart error at 0x%016x (0x%08x; %s): %s", e.PC, e.Word, e.Instruction, e.Err)
	}

	return fmt.Sprintf("hart error at 0x%016x: %s", e.PC, e.Err)
}

func (e *HartError) Unwrap() error {
	return e.Err
}

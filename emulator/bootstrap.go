package emulator

import (
	"fmt"
	"io"

	"github.com/zircon-rv/zircon/internal/cstr"
	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/mem"
)

// Auxiliary vector entry types
const (
	AT_NULL   = 0
	AT_PAGESZ = 6
	AT_RANDOM = 25
)

// stackBlockAlign is the alignment of the initial stack pointer
const stackBlockAlign = 128

// EnvVar is a single environment variable, passed to the guest as "Key=Value".
type EnvVar struct {
	Key   string
	Value string
}

func (e EnvVar) String() string {
	return e.Key + "=" + e.Value
}

// Init creates the heap and stack and places the arguments, environment and auxiliary vector on the stack the way
// the Linux kernel does for a new process. The stack pointer is set to the argument count.
func (h *Hart) Init(argv []string, envp []EnvVar) error {
	h.state = StateInitializing
	as := h.mem
	s := h.settings

	if err := as.Allocate(s.HeapStart, 0); err != nil {
		return fmt.Errorf("allocate heap: %w", err)
	}
	as.Locations[mem.LocHeapStart] = s.HeapStart
	as.Locations[mem.LocHeapEnd] = s.HeapStart

	if err := as.Allocate(s.StackStart, s.StackSize); err != nil {
		return fmt.Errorf("allocate stack: %w", err)
	}
	stackEnd := s.StackStart + s.StackSize
	as.Locations[mem.LocStackStart] = s.StackStart
	as.Locations[mem.LocStackEnd] = stackEnd

	random := make([]byte, 16)
	if _, err := io.ReadFull(s.Random, random); err != nil {
		return fmt.Errorf("read random bytes: %w", err)
	}
	randomAddr, err := h.allocBytes(random)
	if err != nil {
		return err
	}

	argvPtrs := make([]uint64, len(argv))
	for i, arg := range argv {
		if argvPtrs[i], err = h.allocBytes(cstr.Terminate(arg)); err != nil {
			return err
		}
	}

	envPtrs := make([]uint64, len(envp))
	for i, env := range envp {
		if envPtrs[i], err = h.allocBytes(cstr.Terminate(env.String())); err != nil {
			return err
		}
	}

	auxv := [][2]uint64{
		{AT_PAGESZ, s.PageSize},
		{AT_RANDOM, randomAddr},
		{AT_NULL, 0},
	}

	words := make([]uint64, 0, len(auxv)*2+len(envPtrs)+1+len(argvPtrs)+1+1)
	words = append(words, uint64(len(argv)))
	words = append(words, argvPtrs...)
	words = append(words, 0)
	words = append(words, envPtrs...)
	words = append(words, 0)
	for _, aux := range auxv {
		words = append(words, aux[0], aux[1])
	}

	size := uint64(len(words)) * 8
	if size > s.StackSize || mem.AlignDown(stackEnd-size, stackBlockAlign) < s.StackStart {
		return fmt.Errorf("arguments and environment need 0x%x bytes, stack is 0x%x bytes", size, s.StackSize)
	}

	sp := mem.AlignDown(stackEnd-size, stackBlockAlign)
	for i, w := range words {
		if err := as.Write64(sp+uint64(i)*8, w); err != nil {
			return fmt.Errorf("write initial stack: %w", err)
		}
	}

	if err := h.regs.GPR.Write(isa.RegSP, sp); err != nil {
		return err
	}

	h.logger.Debug("bootstrap",
		"heap_start", as.Locations[mem.LocHeapStart],
		"heap_end", as.Locations[mem.LocHeapEnd],
		"stack_start", s.StackStart,
		"stack_end", stackEnd,
		"sp", sp,
		"argc", len(argv),
		"envc", len(envp),
	)

	return nil
}

// alloc grows the heap by n bytes and returns the address of the new cell.
func (h *Hart) alloc(n uint64) (uint64, error) {
	as := h.mem
	addr := as.Locations[mem.LocHeapEnd]
	if err := as.Allocate(addr, n); err != nil {
		return 0, fmt.Errorf("heap alloc of %d bytes: %w", n, err)
	}

	as.Locations[mem.LocHeapEnd] = addr + n
	return addr, nil
}

func (h *Hart) allocBytes(b []byte) (uint64, error) {
	addr, err := h.alloc(uint64(len(b)))
	if err != nil {
		return 0, err
	}

	return addr, h.mem.WriteBytes(addr, b)
}

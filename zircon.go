// Package zircon runs statically linked 64-bit RISC-V Linux programs in user mode emulation. A Process ties an
// executable, its address space and the hart executing it together.
package zircon

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zircon-rv/zircon/elf"
	"github.com/zircon-rv/zircon/emulator"
	"github.com/zircon-rv/zircon/mem"
)

// ProcessSettings configure a new process.
type ProcessSettings struct {
	Hart emulator.HartSettings
}

// DefaultProcessSettings returns the settings of a process with the default layout.
func DefaultProcessSettings() ProcessSettings {
	return ProcessSettings{
		Hart: emulator.DefaultHartSettings(),
	}
}

// Process is a single emulated program.
type Process struct {
	File   *elf.File
	Memory *mem.AddressSpace
	Hart   *emulator.Hart
}

// NewProcess creates a process with an empty address space. Listeners can be attached to the hart and the address
// space before the executable is loaded.
func NewProcess(settings ProcessSettings) (*Process, error) {
	as := mem.New()

	h, err := emulator.NewHart(as, settings.Hart)
	if err != nil {
		as.Close()
		return nil, fmt.Errorf("new hart: %w", err)
	}

	return &Process{
		Memory: as,
		Hart:   h,
	}, nil
}

// Load creates a process and loads the executable in r into it.
func Load(r io.ReaderAt, settings ProcessSettings) (*Process, error) {
	p, err := NewProcess(settings)
	if err != nil {
		return nil, err
	}

	if err := p.Load(r); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// Load parses the executable in r and copies its loadable segments into the address space. r is no longer used
// once Load returns.
func (p *Process) Load(r io.ReaderAt) error {
	if p.File != nil {
		return fmt.Errorf("process already has an executable")
	}

	f, err := elf.Open(r)
	if err != nil {
		return fmt.Errorf("open executable: %w", err)
	}

	if err := f.BuildMemoryImage(p.Memory); err != nil {
		return fmt.Errorf("build memory image: %w", err)
	}

	p.File = f
	return nil
}

// LoadFile loads the executable at path.
func (p *Process) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return p.Load(f)
}

// Start sets up the stack with argv, envp and the auxiliary vector and runs the program from its entry point until
// it halts.
func (p *Process) Start(argv []string, envp []emulator.EnvVar) error {
	return p.StartContext(context.Background(), argv, envp)
}

// StartContext is Start which stops when ctx is done.
func (p *Process) StartContext(ctx context.Context, argv []string, envp []emulator.EnvVar) error {
	if p.File == nil {
		return fmt.Errorf("start: no executable loaded")
	}

	if err := p.Hart.Init(argv, envp); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	return p.Hart.ExecuteContext(ctx, p.File.Entry())
}

// ExitCode returns the code the program passed to exit, ok is false if it did not exit.
func (p *Process) ExitCode() (code uint64, ok bool) {
	return p.Hart.ExitCode()
}

// Close releases the memory of the process.
func (p *Process) Close() error {
	return p.Memory.Close()
}

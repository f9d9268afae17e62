package controller

import (
	"fmt"
	"io"

	"github.com/zircon-rv/zircon/emulator"
	"github.com/zircon-rv/zircon/event"
	"github.com/zircon-rv/zircon/isa"
	"github.com/zircon-rv/zircon/mem"
)

// Attach registers every command as a listener on the hook named by its event. Output is written to w.
func Attach(h *emulator.Hart, cmds []*Command, w io.Writer) error {
	for _, cmd := range cmds {
		cmd := cmd
		run := func() error {
			return cmd.Run(h, w)
		}

		switch cmd.Event {
		case event.TypeBeforeExecute:
			h.OnBeforeExecute.AddListener(func(*emulator.Hart) error {
				return run()
			})
		case event.TypeAfterExecute:
			h.OnAfterExecute.AddListener(func(*emulator.Hart) error {
				return run()
			})
		case event.TypeRegisterRead:
			h.Registers().OnRead(func(isa.RegisterRead) error {
				return run()
			})
		case event.TypeRegisterWrite:
			h.Registers().OnWrite(func(isa.RegisterWrite) error {
				return run()
			})
		case event.TypeMemoryRead:
			h.Memory().OnRead.AddListener(func(mem.ReadEvent) error {
				return run()
			})
		case event.TypeMemoryWrite:
			h.Memory().OnWrite.AddListener(func(mem.WriteEvent) error {
				return run()
			})
		case event.TypeMemoryAllocate:
			h.Memory().OnAllocate.AddListener(func(mem.AllocateEvent) error {
				return run()
			})
		default:
			return fmt.Errorf("can't attach to event '%s'", cmd.Event)
		}
	}

	return nil
}
